// Command exfs2 drives an ExFS2 volume rooted at the current working
// directory (ExFS2 spec section 6): list, add a host file, extract a file
// to standard output, recursively remove, or print debug structures along
// a path.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nazmavali/exfs2"
)

func check(err error) {
	if err == nil {
		return
	}
	log.Fatal(err)
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  exfs2 -l")
	fmt.Println("  exfs2 -a <fs_path> -f <host_file>")
	fmt.Println("  exfs2 -r <fs_path>")
	fmt.Println("  exfs2 -e <fs_path>")
	fmt.Println("  exfs2 -D <fs_path>")
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	fs, err := exfs2.Open(".")
	check(err)

	switch args[0] {
	case "-l":
		if len(args) != 1 {
			usage()
			os.Exit(1)
		}
		out, err := fs.List()
		check(err)
		fmt.Print(out)

	case "-a":
		if len(args) != 4 || args[2] != "-f" {
			usage()
			os.Exit(1)
		}
		check(fs.Add(args[1], args[3]))

	case "-r":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		check(fs.Remove(args[1]))

	case "-e":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		check(fs.Extract(args[1], os.Stdout))

	case "-D":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		out, err := fs.Debug(args[1])
		check(err)
		fmt.Print(out)

	default:
		usage()
		os.Exit(1)
	}
}
