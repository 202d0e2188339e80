// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package main

import "github.com/TheThingsNetwork/medicinebox-monitor/cmd"

func main() {
	cmd.Execute()
}
