// winewarden supervises untrusted Windows executables run under emulation,
// confining them with Landlock filesystem rules, a private mount namespace
// with path virtualization, and a seccomp-notify syscall policy engine.
package main

import (
	"fmt"
	"os"

	"winewarden/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
