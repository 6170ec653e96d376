// Package procpool runs a fixed number of worker processes and exchanges gob-encoded requests
// and responses with them. Workers are started from an executable (by default the current one)
// with EnvWorker set; the request stream is inherited as file descriptor 3 and the response
// stream as file descriptor 4, so the worker keeps its standard output for itself.
package procpool

import (
	"context"
	"encoding/gob"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// EnvWorker is set to "1" in the environment of worker processes.
const EnvWorker = "GO_PHASES_WORKER"

const (
	requestFD  = 3
	responseFD = 4
)

var (
	ErrNoWorkers  = errors.New("at least one worker is required")
	ErrClosed     = errors.New("pool is closed")
	ErrNestedPool = errors.New("worker processes cannot start a pool")
	ErrRemote     = errors.New("worker failed to answer")
)

// Reply is the message a worker sends back for every request. Err is set instead of Resp
// when the response could not be encoded.
type Reply[Resp any] struct {
	Resp Resp
	Err  string
}

// Config describes how workers are started.
type Config struct {
	// Path of the worker executable. Defaults to os.Executable().
	Path string
	Args []string
	// Env is added to the environment of the current process.
	Env     []string
	Workers int
	Stdout  io.Writer
	Stderr  io.Writer
}

type worker struct {
	cmd     *exec.Cmd
	enc     *gob.Encoder
	dec     *gob.Decoder
	request *os.File
	reply   *os.File
	err     error
}

// Pool is a set of started worker processes. Do may be called concurrently; at most one
// request is in flight per worker.
type Pool[Req, Resp any] struct {
	idle    chan *worker
	workers []*worker

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Start starts cfg.Workers worker processes. It fails with ErrNestedPool inside a worker.
func Start[Req, Resp any](cfg Config) (*Pool[Req, Resp], error) {
	if IsWorker() {
		return nil, ErrNestedPool
	}

	if cfg.Workers <= 0 {
		return nil, ErrNoWorkers
	}

	if cfg.Path == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "unable to find current executable")
		}

		cfg.Path = path
	}

	pool := &Pool[Req, Resp]{
		idle:    make(chan *worker, cfg.Workers),
		workers: make([]*worker, 0, cfg.Workers),
	}

	for i := 0; i < cfg.Workers; i++ {
		wrk, err := startWorker(cfg)
		if err != nil {
			_ = pool.Close()

			return nil, errors.Wrapf(err, "unable to start worker %d", i)
		}

		pool.workers = append(pool.workers, wrk)
		pool.idle <- wrk
	}

	return pool, nil
}

func startWorker(cfg Config) (*worker, error) {
	requestR, requestW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create request pipe")
	}

	replyR, replyW, err := os.Pipe()
	if err != nil {
		_ = requestR.Close()
		_ = requestW.Close()

		return nil, errors.Wrap(err, "unable to create reply pipe")
	}

	cmd := exec.Command(cfg.Path, cfg.Args...) //nolint:gosec // the worker command is chosen by the caller
	cmd.Env = append(append(os.Environ(), EnvWorker+"=1"), cfg.Env...)
	cmd.ExtraFiles = []*os.File{requestR, replyW}

	cmd.Stdout = cfg.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err = cmd.Start()
	// the child holds its own copies of these ends
	_ = requestR.Close()
	_ = replyW.Close()

	if err != nil {
		_ = requestW.Close()
		_ = replyR.Close()

		return nil, errors.Wrapf(err, "unable to start %s", cfg.Path)
	}

	return &worker{
		cmd:     cmd,
		enc:     gob.NewEncoder(requestW),
		dec:     gob.NewDecoder(replyR),
		request: requestW,
		reply:   replyR,
	}, nil
}

// Do sends req to an idle worker and waits for its response. It blocks while every worker is busy.
// A request that cannot be encoded only fails that call. A worker whose response stream broke is
// not used again.
func (p *Pool[Req, Resp]) Do(ctx context.Context, req Req) (Resp, error) {
	var resp Resp

	if p.closed.Load() {
		return resp, ErrClosed
	}

	var wrk *worker

	select {
	case <-ctx.Done():
		return resp, errors.Wrap(ctx.Err(), "unable to acquire worker")
	case wrk = <-p.idle:
	}

	defer func() { p.idle <- wrk }()

	if wrk.err != nil {
		return resp, wrk.err
	}

	// gob writes nothing for a value it fails to encode, the stream stays usable
	if err := wrk.enc.Encode(&req); err != nil {
		return resp, errors.Wrapf(err, "unable to send request to worker %d", wrk.cmd.Process.Pid)
	}

	var reply Reply[Resp]

	if err := wrk.dec.Decode(&reply); err != nil {
		wrk.err = errors.Wrapf(err, "unable to read response from worker %d", wrk.cmd.Process.Pid)

		return resp, wrk.err
	}

	if reply.Err != "" {
		return resp, errors.Wrapf(ErrRemote, "worker %d: %s", wrk.cmd.Process.Pid, reply.Err)
	}

	return reply.Resp, nil
}

// Close stops accepting requests, closes the request streams and waits for every worker to exit.
// It must not be called while Do is in progress.
func (p *Pool[Req, Resp]) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		for _, wrk := range p.workers {
			_ = wrk.request.Close()

			err := wrk.cmd.Wait()
			if err != nil && p.closeErr == nil && wrk.err == nil {
				p.closeErr = errors.Wrapf(err, "worker %d exited", wrk.cmd.Process.Pid)
			}

			_ = wrk.reply.Close()
		}
	})

	return p.closeErr
}

// IsWorker reports whether the current process was started by a Pool.
func IsWorker() bool {
	return os.Getenv(EnvWorker) == "1"
}

// Serve answers the requests sent by the parent pool until the request stream is closed.
func Serve[Req, Resp any](handle func(Req) Resp) error {
	requests := os.NewFile(requestFD, "procpool-requests")
	replies := os.NewFile(responseFD, "procpool-replies")

	if requests == nil || replies == nil {
		return errors.New("worker streams are not available")
	}

	defer requests.Close()
	defer replies.Close()

	return ServeConn(requests, replies, handle)
}

// ServeConn answers gob-encoded requests read from r with replies written to w until r reaches EOF.
// A response that cannot be encoded is answered with a Reply carrying the error.
func ServeConn[Req, Resp any](r io.Reader, w io.Writer, handle func(Req) Resp) error {
	dec := gob.NewDecoder(r)
	enc := gob.NewEncoder(w)

	for {
		var req Req

		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return errors.Wrap(err, "unable to read request")
		}

		resp := handle(req)

		err = enc.Encode(&Reply[Resp]{Resp: resp})
		if err != nil {
			err = enc.Encode(&Reply[Resp]{Err: errors.Wrap(err, "unable to encode response").Error()})
		}

		if err != nil {
			return errors.Wrap(err, "unable to write response")
		}
	}
}
