// SPDX-License-Identifier: MPL-2.0

package main

import cmd "packmerger/cmd/packmerger"

func main() {
	cmd.Execute()
}
