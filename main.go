package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rjboer/GoScope/internal/scpi"
)

// dial is swapped out in tests.
var dial = func(addr string) (*scpi.Manager, error) {
	m := scpi.New(addr)
	if err := m.Connect(); err != nil {
		return nil, err
	}
	return m, nil
}

func run(args []string, out io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("goscope", flag.ContinueOnError)
	fs.SetOutput(out)
	addr := fs.String("scope-addr", "", "Oscilloscope raw SCPI address (host:port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := *addr
	if target == "" {
		target = getenv("SCOPE_ADDR")
	}
	if target == "" {
		target = "192.168.1.10:5025"
	}

	m, err := dial(target)
	if err != nil {
		return err
	}
	defer m.Close()

	idn, err := m.Query("*IDN?")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Instrument:", idn)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Getenv); err != nil {
		log.Fatal(err)
	}
}
