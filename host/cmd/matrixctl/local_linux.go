//go:build linux

package main

import (
	"greymatrix/host/config"
	"greymatrix/hosted"
)

func newCdevControl(l config.Local) (localControl, error) {
	return hosted.NewCdevControl(hosted.CdevConfig{
		Chip:            l.Chip,
		Rows:            l.Rows,
		Columns:         l.Columns,
		RowActiveLow:    l.RowActiveLow,
		ColumnActiveLow: l.ColumnActiveLow,
	})
}
