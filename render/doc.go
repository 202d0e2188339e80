// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package render prints the monitor's console output.
//
// A structured message is printed as a block between two rules:
//
//	============================================================
//	🕐 Time: 14:03:59
//	📨 Topic: medicinebox/box1/status
//	📦 Data:
//	   taken: True
//	   pillCount: 3
//	✅ STATUS: Medicine TAKEN ✅
//	============================================================
//
// Anything else is printed on a single line as "[14:03:59] topic: text".
package render
