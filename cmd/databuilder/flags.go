package main

import (
	"flag"
	"strings"

	"github.com/bohdan-nd/uni2ts/dataset"
)

var timestempColumn = flag.String(
	"timestemp_column",
	"",
	"the name of the list-valued column carrying row timestamps; its first element becomes each record's start",
)

var columns columnsFlag

var splitRatio = flag.Float64(
	"split_ratio",
	0.8,
	"fraction of each file's rows that goes to the training split; the rest becomes the eval split",
)

var freq = flag.String(
	"freq",
	"H",
	"the frequency label attached to every record of this build",
)

var workers = flag.Int(
	"workers",
	0,
	"number of shard workers. defaults to the number of CPUs",
)

var storagePath = flag.String(
	"storage-path",
	dataset.DefaultStoragePath(),
	"root directory for persisted datasets. defaults to $CUSTOM_DATA_PATH",
)

var mysqlDsn = flag.String(
	"mysql-dsn",
	"",
	"MySQL DSN to record build runs in (optional)",
)

func init() {
	flag.Var(&columns, "columns", "a value column to include; repeatable, comma-separated values also accepted")
}

// columnsFlag collects one or more value column names.
type columnsFlag []string

func (c *columnsFlag) String() string {
	return strings.Join(*c, ",")
}

func (c *columnsFlag) Set(value string) error {
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			*c = append(*c, name)
		}
	}
	return nil
}
