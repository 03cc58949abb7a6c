// Command pivert runs the PIV card emulator described in spec.md: a
// process that loads an operator-supplied PKCS#12 bundle, constructs a
// card.Card around it, and serves the virtual-reader transport spec.md
// section 6 defines. Modeled on the teacher's piv-ssh-agent/main.go
// subcommand dispatch (os.Args[1] switch, usage printed to stderr on
// misuse, error formatted and exit(1) on failure).
package main

import (
	"fmt"
	"io"
	"os"
)

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: pivert <pfx_path> [pfx_password]
       pivert -config <pivert.yaml>
       pivert install

Emulates a PIV smart card backed by an operator-supplied PKCS#12
credential, presenting it over the virtual-reader transport named in
spec.md section 6.

    <pfx_path> [pfx_password]   Load the bundle directly and serve on the
                                 default platform transport endpoint. If
                                 pfx_password is omitted it is read from
                                 the terminal without echo.
    -config <pivert.yaml>       Load credential path, transport endpoint
                                 and log level from a configuration file.
    install                     Performs no host driver registration;
                                 prints a notice saying so and exits 0
                                 (see install.go).
`)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "-h", "--help":
		usage(os.Stdout)
		os.Exit(0)
	case "install":
		err = cmdInstall(os.Args[2:])
	case "-config":
		if len(os.Args) != 3 {
			usage(os.Stderr)
			os.Exit(1)
		}
		err = cmdServeConfig(os.Args[2])
	default:
		err = cmdServe(os.Args[1:])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pivert: %v\n", err)
		os.Exit(1)
	}
}
