//go:build !linux

package main

import (
	"errors"

	"greymatrix/host/config"
)

func newCdevControl(l config.Local) (localControl, error) {
	return nil, errors.New("the gpiocdev driver needs Linux; use driver: periph")
}
