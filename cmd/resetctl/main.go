// resetctl renders and sends password reset emails outside the server, to
// preview the template and verify mail provider credentials.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
