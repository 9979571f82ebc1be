package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// RemoteTrainerConfig configures the HTTP binding to the external
// fine-tuning service
type RemoteTrainerConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"-" yaml:"api_key"`
	Timeout  int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// RemoteTrainer binds the ClassifierTrainer capability to an external
// fine-tuning service over HTTP. Training and prediction are single blocking
// calls; every transport or service error is passed through as
// TrainerFailure without interpretation.
type RemoteTrainer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type fineTuneRequestBody struct {
	BaseModel  string   `json:"base_model"`
	Epochs     int      `json:"epochs"`
	Device     string   `json:"device"`
	NumClasses int      `json:"num_classes"`
	Texts      []string `json:"texts"`
	Labels     []int    `json:"labels"`
}

type fineTuneResponseBody struct {
	ModelID string `json:"model_id"`
}

type predictRequestBody struct {
	Texts []string `json:"texts"`
}

type predictResponseBody struct {
	Predictions []Prediction `json:"predictions"`
}

// NewRemoteTrainer creates a trainer client for the given service
func NewRemoteTrainer(config RemoteTrainerConfig) (*RemoteTrainer, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("trainer endpoint is required")
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANNOLAB_TRAINER_API_KEY")
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		// Fine-tuning runs for minutes; the guard exists so a dead service
		// surfaces as an error instead of hanging the batch job forever.
		timeout = 30 * time.Minute
	}

	return &RemoteTrainer{
		endpoint: config.Endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Train submits the labeled dataset for fine-tuning and returns a predictor
// bound to the resulting model artifact
func (t *RemoteTrainer) Train(ctx context.Context, trainSet *LabeledDataset, config FineTuneConfig) (Predictor, error) {
	reqBody := fineTuneRequestBody{
		BaseModel:  config.BaseModel,
		Epochs:     config.Epochs,
		Device:     config.Device,
		NumClasses: config.NumClasses,
		Texts:      trainSet.Texts,
		Labels:     trainSet.Labels,
	}

	var respBody fineTuneResponseBody
	if err := t.post(ctx, t.endpoint+"/v1/fine-tune", reqBody, &respBody); err != nil {
		return nil, err
	}
	if respBody.ModelID == "" {
		return nil, fmt.Errorf("trainer returned no model_id")
	}

	return &remotePredictor{trainer: t, modelID: respBody.ModelID}, nil
}

// PredictorFor returns a predictor bound to an already trained model. It
// performs no remote call; a bad model ID surfaces on the first Predict.
func (t *RemoteTrainer) PredictorFor(modelID string) (Predictor, error) {
	if modelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	return &remotePredictor{trainer: t, modelID: modelID}, nil
}

// remotePredictor is the opaque handle to a remotely trained model
type remotePredictor struct {
	trainer *RemoteTrainer
	modelID string
}

func (p *remotePredictor) ModelID() string {
	return p.modelID
}

func (p *remotePredictor) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	url := fmt.Sprintf("%s/v1/models/%s/predict", p.trainer.endpoint, p.modelID)

	var respBody predictResponseBody
	if err := p.trainer.post(ctx, url, predictRequestBody{Texts: texts}, &respBody); err != nil {
		return nil, err
	}

	return respBody.Predictions, nil
}

// post sends a JSON request and decodes a JSON response
func (t *RemoteTrainer) post(ctx context.Context, url string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
