// Command payrecon compares two payroll exports from the command line and
// writes the same report the web server offers for download.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
