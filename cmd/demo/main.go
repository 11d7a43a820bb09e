// Command demo exercises the B+tree end-to-end: create a store, insert a
// batch of keys, scan them back in order, remove a subset, and report what
// remains. Shape grounded on
// intellect4all-storage-engines/cmd/benchmark/main.go's flag-driven CLI.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ryogrid/bptree-go-for-embedding"
	"github.com/ryogrid/bptree-go-for-embedding/storage/buffer"
	"github.com/ryogrid/bptree-go-for-embedding/storage/disk"
)

func main() {
	path := flag.String("path", "", "backing file path (empty = in-memory)")
	count := flag.Int("count", 1000, "number of keys to insert")
	poolSize := flag.Int("pool-size", 64, "buffer pool frame count")
	leafMax := flag.Int("leaf-max", 32, "leaf node fan-out")
	internalMax := flag.Int("internal-max", 32, "internal node fan-out")
	removeFrac := flag.Int("remove-every", 3, "remove every Nth key after inserting (0 disables)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var d *disk.Manager
	if *path == "" {
		d = disk.NewWithFile(disk.NewMemFile(), 0)
	} else {
		var err error
		d, err = disk.Open(*path)
		if err != nil {
			log.Fatalf("demo: open %s: %v", *path, err)
		}
	}

	pool := buffer.New(d, *poolSize, 2)
	tree, err := bptree.NewBPlusTree("demo", pool, compareKeys, keySize, *leafMax, *internalMax)
	if err != nil {
		log.Fatalf("demo: new tree: %v", err)
	}

	fmt.Printf("inserting %d keys (leaf_max=%d internal_max=%d pool=%d frames)\n",
		*count, *leafMax, *internalMax, *poolSize)
	for i := 0; i < *count; i++ {
		k := encodeKey(int32(i))
		ok, err := tree.Insert(k, bptree.RID{PageID: bptree.PageID(i), Slot: 0})
		if err != nil {
			log.Fatalf("demo: insert %d: %v", i, err)
		}
		if !ok {
			log.Fatalf("demo: insert %d rejected as duplicate", i)
		}
	}

	total := scanCount(tree)
	fmt.Printf("forward scan after insert: %d keys\n", total)

	if *removeFrac > 0 {
		removed := 0
		for i := 0; i < *count; i += *removeFrac {
			ok, err := tree.Remove(encodeKey(int32(i)))
			if err != nil {
				log.Fatalf("demo: remove %d: %v", i, err)
			}
			if ok {
				removed++
			}
		}
		fmt.Printf("removed %d keys (every %dth)\n", removed, *removeFrac)
		fmt.Printf("forward scan after removal: %d keys\n", scanCount(tree))
	}

	if err := pool.FlushAll(); err != nil {
		log.Fatalf("demo: flush: %v", err)
	}
	if *path != "" {
		if err := d.Close(); err != nil {
			log.Fatalf("demo: close: %v", err)
		}
	}
}

const keySize = 4

func encodeKey(i int32) []byte {
	buf := make([]byte, keySize)
	binary.BigEndian.PutUint32(buf, uint32(i))
	return buf
}

func compareKeys(a, b []byte) int {
	av := binary.BigEndian.Uint32(a)
	bv := binary.BigEndian.Uint32(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func scanCount(tree *bptree.BPlusTree) int {
	it, err := tree.Begin()
	if err != nil {
		log.Fatalf("demo: begin: %v", err)
	}
	defer it.Close()
	n := 0
	for !it.IsEnd() {
		n++
		it.Next()
	}
	return n
}
