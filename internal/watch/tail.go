package watch

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"caustic/internal/nonlinear"
)

// runState carries what has been read from one run directory so far. The
// samples file is only ever appended to, so a byte offset is enough to
// read just the new rows.
type runState struct {
	offset  int64
	samples int
	best    float64
	logLCol int
	search  string
	dataset string
}

func (w *Watcher) ensureRun(dir string) *runState {
	st, ok := w.runs[dir]
	if !ok {
		st = &runState{best: math.Inf(-1), logLCol: -1}
		w.runs[dir] = st
	}
	if st.search == "" {
		if info, err := nonlinear.LoadRunInfo(dir); err == nil {
			st.search = info.Search
			st.dataset = info.Dataset
		}
	}
	return st
}

// refresh re-reads one directory and emits a snapshot if it is a run.
// During the initial scan (prime) already-completed runs stay silent; only
// completions observed while watching are events.
func (w *Watcher) refresh(dir string, prime bool) {
	completed := fileExists(filepath.Join(dir, nonlinear.CompletedMarker))
	hbPath := filepath.Join(dir, nonlinear.HeartbeatFile)
	hbInfo, hbErr := os.Stat(hbPath)
	if hbErr != nil && !completed {
		return
	}
	if completed && prime {
		return
	}

	st := w.ensureRun(dir)
	w.tail(dir, st)

	ev := Event{
		Dir:               dir,
		Search:            st.search,
		Dataset:           st.dataset,
		Samples:           st.samples,
		BestLogLikelihood: st.best,
	}
	if completed {
		ev.Kind = KindCompleted
		delete(w.runs, dir)
	} else {
		ev.Kind = KindRunning
		ev.LastBeat = readHeartbeat(hbPath, hbInfo)
	}
	w.emit(ev)
}

// tail consumes complete new lines from the samples file. A partially
// written last line stays unconsumed until its newline arrives.
func (w *Watcher) tail(dir string, st *runState) {
	f, err := os.Open(filepath.Join(dir, nonlinear.SamplesFile))
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := f.Seek(st.offset, io.SeekStart); err != nil {
		return
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		st.offset += int64(len(line))

		fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
		if st.logLCol < 0 {
			for i, name := range fields {
				if name == "log_likelihood" {
					st.logLCol = i
				}
			}
			continue
		}
		if st.logLCol >= len(fields) {
			continue
		}
		v, perr := strconv.ParseFloat(fields[st.logLCol], 64)
		if perr != nil {
			continue
		}
		st.samples++
		if v > st.best {
			st.best = v
		}
	}
}

func readHeartbeat(path string, fi os.FileInfo) time.Time {
	if b, err := os.ReadFile(path); err == nil {
		if ts, perr := time.Parse(time.RFC3339, strings.TrimSpace(string(b))); perr == nil {
			return ts
		}
	}
	return fi.ModTime()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
