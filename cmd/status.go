package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"
)

// status is the response of the /data web service.
type status struct {
	TimeStamp   time.Time `json:"timestamp"`
	Direction   string    `json:"direction"`
	Rate        float64   `json:"rate"`
	Position    int32     `json:"position"`
	Edges       uint64    `json:"edges"`
	Transitions uint64    `json:"transitions"`
	Illegal     uint64    `json:"illegal"`
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show position and rate of a running decoder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Value: "http://127.0.0.1:4000", Usage: "web server `URL` of the decoder"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "request timeout"},
		},
		Action: func(ctx *cli.Context) error {
			s, err := fetchStatus(ctx.String("url"), ctx.Duration("timeout"))
			if err != nil {
				return err
			}
			renderStatus(os.Stdout, s)
			return nil
		},
	}
}

// fetchStatus reads the decoder snapshot from the /data web service.
func fetchStatus(url string, timeout time.Duration) (status, error) {
	var s status

	client := http.Client{Timeout: timeout}
	res, err := client.Get(strings.TrimSuffix(url, "/") + "/data")
	if err != nil {
		return s, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return s, fmt.Errorf("%s: unexpected status %s", url, res.Status)
	}

	if err = json.NewDecoder(res.Body).Decode(&s); err != nil {
		return s, fmt.Errorf("%s: invalid response: %w", url, err)
	}
	return s, nil
}

func renderStatus(w io.Writer, s status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Time", s.TimeStamp.Format(time.RFC3339)},
		{"Direction", s.Direction},
		{"Rate (PPS)", fmt.Sprintf("%.2f", s.Rate)},
		{"Position", s.Position},
		{"Edges", s.Edges},
		{"Transitions", s.Transitions},
		{"Illegal", s.Illegal},
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}
