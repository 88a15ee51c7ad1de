// Command pose-import stores a sequence JSON file in the sqlite sequence
// store so the server can load it by id.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/pose-replay/internal/config"
	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/security"
	"github.com/banshee-data/pose-replay/internal/store"
)

func main() {
	dbPath := flag.String("db", config.DefaultDBPath, "sequence store sqlite path")
	name := flag.String("name", "", "sequence name (defaults to the file name)")
	list := flag.Bool("list", false, "list stored sequences and exit")
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *list {
		infos, err := st.ListSequences(ctx)
		if err != nil {
			log.Fatalf("failed to list sequences: %v", err)
		}
		for _, info := range infos {
			fmt.Printf("%s  %-24s %5d frames  %3d fps  %s\n",
				info.ID, info.Name, info.FrameCount, info.FPS, info.Source)
		}
		return
	}

	if flag.NArg() != 1 {
		log.Fatal("usage: pose-import [-db path] [-name n] file.json")
	}
	path := flag.Arg(0)

	info, err := importFile(ctx, st, fsutil.OSFileSystem{}, path, *name)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("✓ Imported %s as %s (%d frames)", path, info.ID, info.FrameCount)
}

func importFile(ctx context.Context, st *store.Store, fsys fsutil.FileSystem, path, name string) (store.SequenceInfo, error) {
	seq, err := pose.LoadFile(fsys, path)
	if err != nil {
		return store.SequenceInfo{}, err
	}
	if seq.Len() == 0 {
		return store.SequenceInfo{}, fmt.Errorf("%s: %w", path, pose.ErrEmptySequence)
	}
	if name == "" {
		name = security.SanitizeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return st.SaveSequence(ctx, name, "file:"+filepath.Base(path), seq)
}
