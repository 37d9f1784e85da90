// Command mock-providers serves local stand-ins for the search and LLM APIs
// so rowscout runs work offline:
//
//	mock-providers -addr :8900 -fixtures fixtures.yaml
//	ROWSCOUT_SEARCH_BASE_URL=http://localhost:8900/search \
//	ROWSCOUT_LLM_BASE_URL=http://localhost:8900/openai/v1 \
//	SERPAPI_KEY=dev GROQ_API_KEY=dev rowscout run ...
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rowscout/rowscout/internal/mockproviders"
)

func main() {
	addr := defaultString("MOCK_PROVIDERS_ADDR", ":8900")
	fixturesPath := defaultString("MOCK_PROVIDERS_FIXTURES", "")
	completion := defaultString("MOCK_PROVIDERS_COMPLETION", "")
	searchKey := defaultString("MOCK_PROVIDERS_SEARCH_KEY", "")
	llmToken := defaultString("MOCK_PROVIDERS_LLM_TOKEN", "")

	fs := flag.NewFlagSet("mock-providers", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixturesPath, "fixtures", fixturesPath, "YAML file with canned search results and a completion")
	fs.StringVar(&completion, "completion", completion, "Text every chat completion returns (overrides the fixtures file)")
	fs.StringVar(&searchKey, "search-key", searchKey, "Require this api_key/key on search requests (empty: accept any)")
	fs.StringVar(&llmToken, "llm-token", llmToken, "Require this bearer token on chat requests (empty: accept any)")
	_ = fs.Parse(os.Args[1:])

	srv := mockproviders.New()
	if fixturesPath != "" {
		f, err := mockproviders.LoadFixtures(fixturesPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(2)
		}
		srv.ApplyFixtures(f)
	}
	if completion != "" {
		srv.SetCompletion(completion)
	}
	srv.RequireSearchKey(searchKey)
	srv.RequireBearerToken(llmToken)

	_, _ = fmt.Fprintf(os.Stdout, "mock-providers listening on %s (fixtures=%s)\n", addr, orNone(fixturesPath))
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
