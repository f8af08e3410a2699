// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Kegstat - Kegboard Flow Controller Tool
//
// A CLI tool for driving kegboard flow controllers and decoding their
// status frames in human-readable format.

package main

import (
	"os"

	"github.com/Thermoquad/kegstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
