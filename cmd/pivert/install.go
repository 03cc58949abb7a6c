package main

import "fmt"

// cmdInstall implements the `install` mode named in spec.md section 6.
// The spec commits only to the subcommand existing and reporting
// success/failure via the same exit-code contract as the credential
// mode; it does not specify driver-registration behavior, and nothing in
// the example pack grounds a vsmartcard/virtual-reader driver installer,
// so this is the full extent of what is implemented.
func cmdInstall(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("install takes no arguments")
	}
	fmt.Println("pivert: no host driver registration is implemented; run pivert directly against a configured transport endpoint")
	return nil
}
