// Package shared provides common setup for the cyberalchemy examples.
package shared

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/m0rjc/cyberalchemy/openai"
)

var (
	modelFlag         = flag.String("model", "", "OpenAI model to use (default: gpt-4.1-mini)")
	requestParamsFlag = flag.String("request-params", "", "JSON string of request parameters (e.g., '{\"temperature\":0.7}')")
	timeoutFlag       = flag.Duration("timeout", 0, "HTTP timeout")
)

// ReadDotEnv loads .env into the environment if it exists.
func ReadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: failed to load .env file: %v", err)
	}
}

// CreateOpenAIClient creates a client from OPENAI_API_KEY, or from AZURE_OPENAI_ENDPOINT
// and AZURE_OPENAI_APIVERSION when the endpoint is set. Calls log.Fatal on failure.
func CreateOpenAIClient() *openai.Client {
	flag.Parse()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable not set")
	}

	var opts []openai.ClientOption
	model := *modelFlag
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		if model == "" {
			model = "gpt-4.1-mini"
		}
		opts = append(opts, openai.WithAzureDeployment(endpoint, model, os.Getenv("AZURE_OPENAI_APIVERSION")))
	}

	if *requestParamsFlag != "" {
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(*requestParamsFlag), &params); err != nil {
			log.Fatalf("Failed to parse request-params JSON: %v", err)
		}
		for key, value := range params {
			opts = append(opts, openai.WithRequestParam(key, value))
		}
	}

	if *timeoutFlag > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: *timeoutFlag}))
	}

	client, err := openai.NewClient(apiKey, opts...)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}
	return client
}
