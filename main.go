// Command commodoreconv converts Commodore 1541 floppy disk images between
// LOGICAL (.d64/.d71), GCR (.g64) and FLUX (.i64) formats.
package main

import "commodoreconv/cmd"

func main() {
	cmd.Execute()
}
