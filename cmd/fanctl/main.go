// Command fanctl reads or writes the fan monitor's feature report.
//
//	fanctl read [--raw]
//	fanctl write FILE
//	fanctl write --hex 48656c6c6f
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"fanmonitor-go/host/fanctl"
)

type globalOptions struct {
	Profile string `short:"p" long:"profile" description:"YAML device profile"`
	VID     uint16 `long:"vid" description:"override vendor ID"`
	PID     uint16 `long:"pid" description:"override product ID"`
}

var opts globalOptions

func open() (*fanctl.Conn, error) {
	p, err := fanctl.LoadProfile(opts.Profile)
	if err != nil {
		return nil, err
	}
	if opts.VID != 0 {
		p.VID = opts.VID
	}
	if opts.PID != 0 {
		p.PID = opts.PID
	}
	return fanctl.Open(p)
}

type readCommand struct {
	Raw bool `long:"raw" description:"write the bytes to stdout instead of a hex dump"`
}

func (c *readCommand) Execute([]string) error {
	conn, err := open()
	if err != nil {
		return err
	}
	defer conn.Close()

	data, err := conn.ReadReport()
	if err != nil {
		return err
	}
	if c.Raw {
		_, err = os.Stdout.Write(data)
		return err
	}
	_, err = fmt.Print(hex.Dump(data))
	return err
}

type writeCommand struct {
	Hex  string `long:"hex" description:"report bytes as a hex string"`
	Args struct {
		File string `positional-arg-name:"FILE" description:"file holding up to 128 bytes, - for stdin"`
	} `positional-args:"yes"`
}

func (c *writeCommand) payload() ([]byte, error) {
	switch {
	case c.Hex != "":
		return hex.DecodeString(c.Hex)
	case c.Args.File == "-":
		return io.ReadAll(io.LimitReader(os.Stdin, fanctl.ReportSize+1))
	case c.Args.File != "":
		return os.ReadFile(c.Args.File)
	}
	return nil, fmt.Errorf("nothing to write: pass FILE or --hex")
}

func (c *writeCommand) Execute([]string) error {
	data, err := c.payload()
	if err != nil {
		return err
	}
	conn, err := open()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteReport(data); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes\n", len(data))
	return nil
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("read", "Read the feature report", "Fetch all 128 bytes with one GET_REPORT.", &readCommand{})
	parser.AddCommand("write", "Write the feature report", "Send up to 128 bytes with one SET_REPORT, zero-padded.", &writeCommand{})

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
