package awktab

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/types"
	"github.com/golang/glog"
)

// MaxRowBytes bounds the length of one output row of a scan
const MaxRowBytes = 16 << 20

// Rows iterates over the output of a running scan program. Rows are produced
// lazily while the caller reads them and cannot be restarted; Close stops the
// program.
type Rows struct {
	schema  types.Schema
	input   *bufio.Scanner
	pipe    *io.PipeReader
	cancel  context.CancelFunc
	done    chan error
	current []interface{}
	err     error
	eof     bool
	closed  bool
}

// Open starts the program executing scan over the file of its source
func Open(ctx context.Context, scan *physical.NativeScan) (*Rows, error) {
	code, err := Render(scan)
	if err != nil {
		return nil, err
	}
	src := scan.Entry.Handle.(*Source)

	prog, err := parser.ParseProgram([]byte(code), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "awktab: parse program of %s", scan.Table)
	}
	in, err := interp.New(prog)
	if err != nil {
		return nil, errors.Wrapf(err, "awktab: load program of %s", scan.Table)
	}

	if glog.V(2) {
		glog.Infof("awktab: scan %s with\n%s", src.Path, code)
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := in.ExecuteContext(ctx, &interp.Config{
			Output:       pw,
			Args:         []string{src.Path},
			NoArgVars:    true,
			Vars:         []string{"FS", src.delimiter(), "OFS", outputSeparator},
			Environ:      []string{},
			NoExec:       true,
			NoFileWrites: true,
		})
		pw.CloseWithError(err)
		done <- err
	}()

	input := bufio.NewScanner(pr)
	input.Buffer(make([]byte, 0, 64*1024), MaxRowBytes)

	return &Rows{
		schema: scan.Schema(),
		input:  input,
		pipe:   pr,
		cancel: cancel,
		done:   done,
	}, nil
}

func (self *Rows) Schema() types.Schema { return self.schema }

// Next advances to the next row, false at the end of the data or on error
func (self *Rows) Next() bool {
	if self.closed || self.err != nil {
		return false
	}
	if !self.input.Scan() {
		if err := self.input.Err(); err != nil {
			self.err = errors.Wrap(err, "awktab: read scan output")
		} else {
			self.eof = true
		}
		return false
	}

	fields := strings.Split(self.input.Text(), outputSeparator)
	if len(fields) != len(self.schema) {
		self.err = errors.Newf("awktab: row has %d fields, expect %d", len(fields), len(self.schema))
		return false
	}
	row := make([]interface{}, 0, len(fields))
	for i, f := range fields {
		v, err := decode(f, self.schema[i])
		if err != nil {
			self.err = errors.Wrapf(err, "awktab: column %s", self.schema[i].Name)
			return false
		}
		row = append(row, v)
	}
	self.current = row
	return true
}

// Values returns the current row, typed after the schema: int64, float64,
// string, bool, time.Time, or nil for an empty field of a nullable column
func (self *Rows) Values() []interface{} { return self.current }

func (self *Rows) Err() error { return self.err }

func (self *Rows) Close() error {
	if self.closed {
		return nil
	}
	self.closed = true
	self.cancel()
	self.pipe.Close()
	err := <-self.done

	// a program stopped before the end of its output fails on the closed
	// pipe, which is not an error of the scan
	if err != nil && self.eof {
		return errors.Wrap(err, "awktab: scan program")
	}
	return nil
}

func decode(f string, col types.Column) (interface{}, error) {
	if f == "" && col.Nullable {
		return nil, nil
	}
	switch col.Type.Kind {
	case types.KindInteger:
		return strconv.ParseInt(strings.TrimSpace(f), 10, 64)
	case types.KindFloat, types.KindDecimal:
		return strconv.ParseFloat(strings.TrimSpace(f), 64)
	case types.KindBoolean:
		return strconv.ParseBool(strings.TrimSpace(f))
	case types.KindDate:
		return time.Parse("2006-01-02", strings.TrimSpace(f))
	case types.KindTimestamp:
		return time.Parse("2006-01-02 15:04:05", strings.TrimSpace(f))
	default:
		return f, nil
	}
}
