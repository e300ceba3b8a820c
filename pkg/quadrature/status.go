package quadrature

import "fmt"

// String renders the snapshot as status line, e.g.
//  Dirección: Forward, Velocidad: 125.00 PPS, Posición: 42
func (s Snapshot) String() string {
	return fmt.Sprintf("Dirección: %s, Velocidad: %.2f PPS, Posición: %d", s.Direction, s.Rate, s.Position)
}
