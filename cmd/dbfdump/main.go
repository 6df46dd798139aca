// dbfdump reads a raw byte stream carrying BEGIN/END-framed DBF messages
// (binary or ASCII text) and prints each completed message to stdout in
// ASCII interchange form, one per line.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/dbf/receiver"
	"github.com/mewkiz/dbf/serializer"
	"github.com/mewkiz/dbf/unserializer"
	"github.com/pkg/errors"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := dump(flag.Arg(0)); err != nil {
		log.Fatalf("%+v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: dbfdump FILE")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func dump(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	rcv := receiver.New(receiver.SystemClock{})
	for {
		n, err := rcv.ReadFrame(f)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.WithStack(err)
		}
		if n < 0 {
			return errors.Errorf("receiver protocol error")
		}
		printMessage(rcv)
		rcv.Reset()
	}
}

// printMessage decodes every value of the message currently held by rcv and
// prints it as a space-separated ASCII interchange line.
func printMessage(rcv *receiver.Receiver) {
	u, crcResult := unserializer.NewFromReceiver(rcv)
	ascii := serializer.NewASCII()
	n := u.ToSerializerAll(ascii)
	fmt.Printf("%s  # %d value(s), crc=%s\n", ascii.Bytes(), n, crcResult)
}
