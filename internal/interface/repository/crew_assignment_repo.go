package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/utils"

	"github.com/cenkalti/backoff/v5"
)

// CrewServiceConfig points the assignment client at the crew backend
type CrewServiceConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
	Retries     int
	RetryDelay  time.Duration
}

// HTTPCrewAssignmentRepository binds approved missions to crews on the crew backend
type HTTPCrewAssignmentRepository struct {
	logger logger.Logger
	client *http.Client
	cfg    CrewServiceConfig
}

// NewHTTPCrewAssignmentRepository creates a new crew backend client
func NewHTTPCrewAssignmentRepository(cfg CrewServiceConfig, logger logger.Logger) *HTTPCrewAssignmentRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	return &HTTPCrewAssignmentRepository{
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

type assignmentRequest struct {
	MissionID        string                  `json:"missionId"`
	MissionType      entity.MissionType      `json:"missionType"`
	CrewID           string                  `json:"crewId"`
	MemberIDs        []string                `json:"memberIds"`
	StartDate        string                  `json:"startDate"`
	EndDate          string                  `json:"endDate"`
	Contract         entity.Contract         `json:"contract"`
	Aircraft         entity.AircraftSnapshot `json:"aircraft"`
	GenerateContract bool                    `json:"generateContract"`
}

type assignmentResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ContractGenerated bool   `json:"contractGenerated"`
		ContractURL       string `json:"contractUrl"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// AssignToCrew posts the mission to the crew backend. The backend keys the
// assignment on missionId, so repeated calls are safe.
func (r *HTTPCrewAssignmentRepository) AssignToCrew(ctx context.Context, mission *entity.MissionOrder, generateContract bool) (*repository.AssignmentResult, error) {
	body := assignmentRequest{
		MissionID:        mission.ID,
		MissionType:      mission.Type,
		CrewID:           mission.Crew.ID,
		MemberIDs:        mission.Crew.MemberIDs(),
		StartDate:        mission.Contract.StartDate.Format(utils.DATE_LAYOUT),
		EndDate:          mission.Contract.EndDate.Format(utils.DATE_LAYOUT),
		Contract:         mission.Contract,
		Aircraft:         mission.Aircraft,
		GenerateContract: generateContract,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assignment: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/crews/%s/assignments", r.cfg.BaseURL, mission.Crew.ID)

	result, err := backoff.Retry(ctx, func() (*repository.AssignmentResult, error) {
		return r.post(ctx, url, jsonData)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(r.cfg.RetryDelay)),
		backoff.WithMaxTries(uint(r.cfg.Retries+1)),
	)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Mission assigned on crew backend",
		"missionId", mission.ID,
		"crewId", mission.Crew.ID,
		"contractGenerated", result.ContractGenerated)

	return result, nil
}

func (r *HTTPCrewAssignmentRepository) post(ctx context.Context, url string, jsonData []byte) (*repository.AssignmentResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+r.cfg.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Crew backend request failed", "url", url, "error", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response assignmentResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&response)

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("crew backend returned status %d: %s", resp.StatusCode, response.Error.Message)
	case resp.StatusCode == http.StatusConflict:
		// Already assigned by an earlier attempt.
		return &repository.AssignmentResult{
			ContractGenerated: response.Data.ContractGenerated,
			ContractURL:       response.Data.ContractURL,
		}, nil
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, backoff.Permanent(fmt.Errorf("crew backend returned status %d: %s (code: %s)",
			resp.StatusCode, response.Error.Message, response.Error.Code))
	}

	if decodeErr != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if !response.Success {
		return nil, backoff.Permanent(fmt.Errorf("failed to assign mission: %s (code: %s)", response.Error.Message, response.Error.Code))
	}

	return &repository.AssignmentResult{
		ContractGenerated: response.Data.ContractGenerated,
		ContractURL:       response.Data.ContractURL,
	}, nil
}
