package server

import (
	"fmt"
	"runtime"

	"cell-counter/internal/counter"
	"cell-counter/internal/imaging"

	"go.uber.org/zap"
)

type job struct {
	id     string
	image  []byte
	result chan jobResult // buffered, so a worker never blocks on a gone client
}

type jobResult struct {
	res *counter.Result
	err error
}

func (s *Server) runWorker(workerID int) {
	defer s.wg.Done()
	// OpenCV keeps per-thread state
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.log.Debug("worker created", zap.Int("worker", workerID))
	for j := range s.jobs {
		s.metrics.QueueDepth.Set(float64(len(s.jobs)))
		j.result <- s.process(workerID, j)
	}
}

// process decodes and counts one upload. A panic fails the job instead of
// the worker.
func (s *Server) process(workerID int, j job) (out jobResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("worker panic recovered",
				zap.Int("worker", workerID), zap.String("id", j.id), zap.Any("panic", r))
			out = jobResult{err: fmt.Errorf("worker panic: %v", r)}
		}
	}()

	mat, err := imaging.Decode(j.image)
	if err != nil {
		return jobResult{err: err}
	}
	defer func() {
		if err := mat.Close(); err != nil {
			s.log.Warn("error closing image", zap.Int("worker", workerID), zap.Error(err))
		}
	}()

	res, err := s.counter.Count(mat)
	return jobResult{res: res, err: err}
}
