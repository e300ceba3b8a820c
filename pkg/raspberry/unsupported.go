//go:build !linux

package raspberry

import "quadenc/pkg/app/config"

func openChip(config.GpioConfig) (Encoder, error) {
	return nil, ErrUnsupported
}

func openMem(config.GpioConfig) (Encoder, error) {
	return nil, ErrUnsupported
}
