// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the cpcm command line with Cobra. Commands load the
// configuration, open the store and hand off to the core package; rendering
// and prompting are the only logic kept here.
package cli
