package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/textgrad/config"
	"github.com/teilomillet/textgrad/report"
	"github.com/teilomillet/textgrad/utils"
)

// fakeModels answers as student or teacher depending on the conversation.
func fakeModels(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		first := req.Messages[0].Content
		last := req.Messages[len(req.Messages)-1].Content
		var reply string
		switch {
		case strings.HasPrefix(first, "You are an expert Prompt Engineer"):
			reply = `"Always answer with [[N]]."`
		case strings.HasPrefix(first, "You are an AI optimization assistant"):
			reply = "The answer is not in the [[N]] format."
		case strings.HasPrefix(last, "Always answer"):
			reply = "Answer: [[4]]"
		default:
			reply = "four"
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}},
		})
	}))
}

func setupGlobals(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "train.jsonl")
	require.NoError(t, os.WriteFile(data, []byte(`{"question": "What is 2+2?", "answer": "2+2\n#### 4"}`+"\n"), 0o644))

	backendCfg := func() *config.Config {
		cfg := config.NewConfig()
		config.ApplyOptions(cfg,
			config.SetProvider("openai"),
			config.SetModel("test-model"),
			config.SetEndpoint(endpoint),
			config.SetAPIKey("sk-test"),
			config.SetRetryDelay(time.Millisecond),
		)
		return cfg
	}
	studentCfg = backendCfg()
	teacherCfg = backendCfg()
	trainCfg = &config.TrainConfig{
		MaxEpochs:     3,
		Concurrency:   1,
		ExcerptLength: 150,
		DatasetPath:   data,
		Instructions:  "Solve it.",
		Parser:        "numeric",
		ReportPath:    filepath.Join(dir, "epochs.csv"),
		OutputPath:    filepath.Join(dir, "final.json"),
	}
	logger = utils.NewNopLogger()
	return dir
}

func TestRunTraining(t *testing.T) {
	server := fakeModels(t)
	defer server.Close()
	setupGlobals(t, server.URL)

	var stdout bytes.Buffer
	require.NoError(t, runTraining(context.Background(), &stdout))

	assert.Contains(t, stdout.String(), "State:  CONVERGED")
	assert.Contains(t, stdout.String(), "Always answer with [[N]].")

	data, err := os.ReadFile(trainCfg.OutputPath)
	require.NoError(t, err)
	var artifact report.Artifact
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, "CONVERGED", artifact.State)
	assert.Equal(t, 2, artifact.Epochs)
	assert.Equal(t, 1, artifact.Steps)
	assert.Equal(t, "Always answer with [[N]].", artifact.Parameters[0].Data)

	csvData, err := os.ReadFile(trainCfg.ReportPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,1,0,0.0000,1,1,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2,1,1,1.0000,0,0,"), lines[2])
}

func TestRunDiagnosis(t *testing.T) {
	server := fakeModels(t)
	defer server.Close()
	dir := setupGlobals(t, server.URL)
	trainCfg.Instructions = "Always answer with [[N]]."

	out := filepath.Join(dir, "diagnosis.csv")
	var stdout bytes.Buffer
	require.NoError(t, runDiagnosis(context.Background(), &stdout, out))

	assert.Contains(t, stdout.String(), "Accuracy: 100.00% (1/1)")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "id,status,question,prediction,truth\n0,PASS,What is 2+2?,4,4\n", string(data))
}
