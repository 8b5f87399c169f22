// Copyright 2024 The Forge Authors. All rights reserved.

// Package ctxt provides the ambient driver.Device used throughout the
// framework, selected once at process startup.
package ctxt

import (
	"errors"
	"strings"

	"github.com/nvpipeline/forge/driver"
)

var (
	drv driver.Driver
	dev driver.Device
)

var errNoDriver = errors.New("ctxt: driver not found")

// loadDriver attempts to open any registered driver whose name
// contains name (case-sensitive; the empty string matches all). It
// assumes drv and dev hold no valid driver and replaces both on
// success.
func loadDriver(name string) error {
	drivers := driver.Drivers()
	err := errNoDriver
	for i := range drivers {
		if !strings.Contains(drivers[i].Name(), name) {
			continue
		}
		var d driver.Device
		if d, err = drivers[i].Open(); err != nil {
			continue
		}
		drv = drivers[i]
		dev = d
		return nil
	}
	return err
}

// Driver returns the selected driver.Driver.
func Driver() driver.Driver { return drv }

// Device returns the selected driver.Device.
func Device() driver.Device { return dev }
