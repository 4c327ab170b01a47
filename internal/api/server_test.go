package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bioflow/internal/model"
	"bioflow/internal/service"
	"bioflow/test/mocks"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestHandleSubmitJob tests the handleSubmitJob method using mockery-generated mocks
func TestHandleSubmitJob(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	metricsMock.On("IncrementServerRequestCounter", "success").Return()
	redisMock.On("SetJobStatus", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)
	redisMock.On("EnqueueJob", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	job := model.Job{
		Endpoint: "launch/structure_utils/fix_side_chain",
		Inputs:   map[string]string{"input_pdb_path": "/data/structure.pdb"},
		OutputPaths: map[string]string{
			"output_pdb_path": "fixed.pdb",
		},
	}

	jobJSON, err := json.Marshal(job)
	require.NoError(t, err, "failed to marshal job payload")

	req, err := http.NewRequest("POST", "/jobs", bytes.NewBuffer(jobJSON))
	require.NoError(t, err, "failed to create HTTP request")

	rr := httptest.NewRecorder()
	server.handleSubmitJob(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code, "expected HTTP 202 Accepted status")

	// The relay assigns an id and hands it back.
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])

	metricsMock.AssertExpectations(t)
	redisMock.AssertExpectations(t)
}

func TestHandleSubmitJobInvalidJSON(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	metricsMock.On("IncrementServerRequestCounter", "failed").Return()

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	req, err := http.NewRequest("POST", "/jobs", bytes.NewBufferString(`{"endpoint":}`))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.handleSubmitJob(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSubmitJobMissingEndpoint(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	metricsMock.On("IncrementServerRequestCounter", "failed").Return()

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	req, err := http.NewRequest("POST", "/jobs", bytes.NewBufferString(`{"inputs":{"input_pdb_path":"/x.pdb"}}`))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.handleSubmitJob(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// Test for Redis failure
func TestHandleSubmitJobRedisFailure(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	metricsMock.On("IncrementServerRequestCounter", "failed").Return()
	redisMock.On("SetJobStatus", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)
	redisMock.On("EnqueueJob", mock.Anything, mock.AnythingOfType("string")).Return(
		errors.New("redis connection error"),
	)

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	job := model.Job{Endpoint: "launch/gromacs/pdb2gmx"}
	jobJSON, _ := json.Marshal(job)
	req, _ := http.NewRequest("POST", "/jobs", bytes.NewBuffer(jobJSON))
	rr := httptest.NewRecorder()

	server.handleSubmitJob(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	metricsMock.AssertExpectations(t)
	redisMock.AssertExpectations(t)
}

func TestHandleJobStatus(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	status := model.JobStatus{ID: "job-1", State: model.StateCompleted, Token: "tok"}
	statusJSON, _ := json.Marshal(status)

	metricsMock.On("IncrementServerRequestCounter", "success").Return()
	redisMock.On("GetJobStatus", mock.Anything, "job-1").Return(string(statusJSON), nil)

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	req, err := http.NewRequest("GET", "/jobs/job-1", nil)
	require.NoError(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "job-1"})

	rr := httptest.NewRecorder()
	server.handleJobStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got model.JobStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, model.StateCompleted, got.State)
	assert.Equal(t, "tok", got.Token)
}

func TestHandleJobStatusUnknownJob(t *testing.T) {
	metricsMock := mocks.NewMetricsClient(t)
	redisMock := mocks.NewRedisClient(t)

	metricsMock.On("IncrementServerRequestCounter", "failed").Return()
	redisMock.On("GetJobStatus", mock.Anything, "missing").Return("", nil)

	svc := &service.Services{
		Metrics: metricsMock,
		Redis:   redisMock,
	}
	server := NewServer(svc, "")

	req, err := http.NewRequest("GET", "/jobs/missing", nil)
	require.NoError(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})

	rr := httptest.NewRecorder()
	server.handleJobStatus(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
