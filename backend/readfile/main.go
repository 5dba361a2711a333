// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command readfile decrypts and prints stored order records.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ttbt-io/dugout/backend"
)

var (
	dataDir   = flag.String("data-dir", "data", "Directory for order records")
	scorecard = flag.Bool("scorecard", false, "Print the scorecard instead of JSON")
)

func main() {
	flag.Parse()
	st, err := backend.OpenStorage(*dataDir, os.Getenv("DUGOUT_MASTER_KEY"))
	if err != nil {
		log.Fatal("Failed to open storage", "err", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	args := flag.Args()
	if len(args) == 0 {
		// Every record in the data directory.
		ids, err := backend.NewOrderStore(*dataDir, st).ListRecordIDs()
		if err != nil {
			log.Fatal("Failed to list records", "err", err)
		}
		for _, id := range ids {
			args = append(args, backend.RecordFilename(id))
		}
	}

	for _, arg := range args {
		arg = strings.TrimPrefix(arg, *dataDir)
		arg = strings.TrimPrefix(arg, string(filepath.Separator))
		var rec backend.Record
		if err := st.ReadDataFile(arg, &rec); err != nil {
			log.Error(arg, "err", err)
			continue
		}
		fmt.Printf("=========== %s ===========\n", arg)
		if *scorecard {
			fmt.Print(backend.RenderScorecard(rec.Order()))
			continue
		}
		if err := enc.Encode(&rec); err != nil {
			log.Error("JSON", "file", arg, "err", err)
		}
	}
}
