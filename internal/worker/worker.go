package worker

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"bioflow/internal/client"
	"bioflow/internal/model"
	"bioflow/internal/service"
	"bioflow/internal/telemetry"

	"go.uber.org/zap"
)

const defaultWorkers = 4

// RunFunc executes one relay job against the remote API and reports its
// outcome. Failures travel inside the result, not as a separate error.
type RunFunc func(ctx context.Context, job model.Job) model.JobResult

// InternalErrorHandler receives errors that are not tied to a single job
// result (dequeue failures, corrupt payloads, result push failures).
type InternalErrorHandler interface {
	HandleError(err error)
}

// WorkerService drains the relay queue and drives the remote job API.
type WorkerService struct {
	*service.Services
	workers      int
	RunFunc      RunFunc
	errorHandler InternalErrorHandler
	errorChannel chan error
	wg           sync.WaitGroup
}

type JobError struct {
	JobString string
	error
}

// NewWorkerService creates the worker pool. A nil run function means jobs
// are executed against the Services' remote client.
func NewWorkerService(svc *service.Services, workers int, run RunFunc, errorHandler InternalErrorHandler) *WorkerService {
	if workers <= 0 {
		workers = defaultWorkers
	}
	w := &WorkerService{
		Services:     svc,
		workers:      workers,
		RunFunc:      run,
		errorHandler: errorHandler,
		errorChannel: make(chan error, workers),
	}
	if w.RunFunc == nil {
		w.RunFunc = w.runRemote
	}
	return w
}

// Start launches the worker goroutines and returns immediately. Use Wait to
// block until the context stops them.
func (w *WorkerService) Start(ctx context.Context) error {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i)
	}

	go func() {
		for err := range w.errorChannel {
			if w.errorHandler != nil {
				w.errorHandler.HandleError(err)
				continue
			}
			telemetry.Logger.Error("Worker error", zap.Error(err))
		}
	}()
	go func() {
		w.wg.Wait()
		close(w.errorChannel)
	}()

	return nil
}

// Wait blocks until every worker goroutine has exited.
func (w *WorkerService) Wait() {
	w.wg.Wait()
}

func (w *WorkerService) processJobs(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobStr, err := w.Services.Redis.DequeueJob(ctx)
		if err != nil {
			w.errorChannel <- JobError{jobStr, err}
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if jobStr == "" {
			// Queue wait timed out with nothing pending.
			continue
		}

		var job model.Job
		if err := json.Unmarshal([]byte(jobStr), &job); err != nil {
			w.errorChannel <- JobError{jobStr, err}
			continue
		}
		telemetry.Logger.Info("Dequeued job", zap.Int("worker_id", id), zap.String("job_id", job.ID))

		result := w.RunFunc(ctx, job)
		w.finishJob(ctx, job, result)
	}
}

// finishJob records the terminal status and pushes the result payload.
func (w *WorkerService) finishJob(ctx context.Context, job model.Job, result model.JobResult) {
	state := model.StateCompleted
	if result.Error != "" {
		state = model.StateFailed
	}
	w.setStatus(ctx, model.JobStatus{
		ID:          job.ID,
		State:       state,
		Token:       result.Token,
		ElapsedSecs: result.ElapsedSecs,
		OutputFiles: result.OutputFiles,
		Error:       result.Error,
	})

	payload, err := json.Marshal(result)
	if err != nil {
		w.errorChannel <- JobError{job.ID, err}
		return
	}
	if err := w.Services.Redis.EnqueueJobResult(ctx, string(payload)); err != nil {
		w.errorChannel <- JobError{job.ID, err}
		return
	}
	telemetry.Logger.Info("Pushed job result", zap.String("job_id", job.ID), zap.String("state", string(state)))
}

func (w *WorkerService) setStatus(ctx context.Context, status model.JobStatus) {
	if status.ID == "" {
		return
	}
	payload, err := json.Marshal(status)
	if err != nil {
		w.errorChannel <- JobError{status.ID, err}
		return
	}
	if err := w.Services.Redis.SetJobStatus(ctx, status.ID, string(payload)); err != nil {
		w.errorChannel <- JobError{status.ID, err}
	}
}

// runRemote is the default RunFunc: launch, wait for the terminal status,
// download the outputs.
func (w *WorkerService) runRemote(ctx context.Context, job model.Job) model.JobResult {
	result := model.JobResult{Job: job}

	token, _, err := w.Remote.Launch(ctx, w.Remote.BaseURL()+job.Endpoint, launchArgs(job))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Token = token
	w.setStatus(ctx, model.JobStatus{ID: job.ID, State: model.StateLaunched, Token: token})

	files, elapsed, err := w.Remote.CheckJob(ctx, token)
	result.ElapsedSecs = elapsed.Seconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OutputFiles = files

	dest := job.DownloadDir
	if dest == "" {
		dest = "."
	}
	if err := w.Remote.Retrieve(ctx, files, dest); err != nil {
		result.Error = err.Error()
	}
	return result
}

// launchArgs converts a relay job into tagged launch arguments, in a
// deterministic order.
func launchArgs(job model.Job) []client.Argument {
	var args []client.Argument
	for _, name := range sortedKeys(job.Inputs) {
		args = append(args, client.FileInput{Name: name, Path: job.Inputs[name]})
	}
	for _, name := range sortedKeys(job.OutputPaths) {
		args = append(args, client.OutputPath{Name: name, Path: job.OutputPaths[name]})
	}
	if len(job.Properties) > 0 {
		args = append(args, client.ConfigObject{Properties: job.Properties})
	}
	return args
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
