// dbfenc reads a text file of ASCII interchange lines (space-separated
// integers, quoted strings and bare words, one message per line) and writes
// the equivalent BEGIN/END-framed binary DBF messages to a sibling .dbf
// file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mewkiz/dbf"
	"github.com/mewkiz/dbf/serializer"
	"github.com/mewkiz/dbf/unserializer"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
)

func main() {
	var (
		noCRC bool
		force bool
	)
	flag.BoolVar(&noCRC, "no-crc", false, "omit the trailing CRC-32 code")
	flag.BoolVar(&force, "f", false, "force overwrite")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := encode(flag.Arg(0), noCRC, force); err != nil {
		log.Fatalf("%+v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: dbfenc [OPTION]... FILE")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func encode(path string, noCRC, force bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	dbfPath := pathutil.TrimExt(path) + ".dbf"
	if !force && osutil.Exists(dbfPath) {
		return errors.Errorf("DBF file %q already present; use -f flag to force overwrite", dbfPath)
	}
	w, err := os.Create(dbfPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()
	out := bufio.NewWriter(w)
	defer out.Flush()

	sc := bufio.NewScanner(f)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		in := unserializer.NewASCII(line)
		bin := serializer.New()
		if n := in.ToSerializerAll(bin); n < 0 {
			return errors.Errorf("line %d: could not decode ASCII input", lineNum)
		}
		if noCRC {
			bin.Finalize()
		} else {
			bin.WriteCRC()
		}
		if _, err := out.Write(dbf.Frame(bin)); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(sc.Err())
}
