// Command extsort-genchunk writes a file of random fixed-width unsigned
// integer keys, for exercising extsort without a pre-existing input file.
// Adapted from original_source/generate_chunk.cpp.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
)

func main() {
	output := flag.String("output", "", "path to write the generated keys (required)")
	count := flag.Int64("count", 1_000_000, "number of keys to generate")
	keyWidth := flag.Int("key-width", 8, "key width in bytes: 1, 2, 4, or 8")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *output == "" {
		fmt.Fprintln(os.Stderr, "extsort-genchunk: -output is required")
		flag.PrintDefaults()
		os.Exit(2)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extsort-genchunk: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	r := rand.New(rand.NewSource(*seed))
	buf := make([]byte, *keyWidth)

	for i := int64(0); i < *count; i++ {
		switch *keyWidth {
		case 1:
			buf[0] = byte(r.Intn(256))
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(r.Intn(1<<16)))
		case 4:
			binary.LittleEndian.PutUint32(buf, r.Uint32())
		case 8:
			binary.LittleEndian.PutUint64(buf, r.Uint64())
		default:
			fmt.Fprintf(os.Stderr, "extsort-genchunk: unsupported key width %d\n", *keyWidth)
			os.Exit(2)
		}
		if _, err := w.Write(buf); err != nil {
			fmt.Fprintf(os.Stderr, "extsort-genchunk: write: %v\n", err)
			os.Exit(1)
		}
	}
}
