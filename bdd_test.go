package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/pulsedash/backend/internal/accounts"
	"github.com/pulsedash/backend/internal/auth"
	"github.com/pulsedash/backend/internal/dispatch"
	"github.com/pulsedash/backend/internal/handlers"
	"github.com/pulsedash/backend/internal/insights"
	"github.com/pulsedash/backend/internal/pkce"
	"github.com/pulsedash/backend/internal/platforms"
	"github.com/pulsedash/backend/internal/prefs"
)

type bddTestContext struct {
	db           *sql.DB
	server       *httptest.Server
	validator    *auth.HMACValidator
	token        string
	lastResponse *http.Response
	lastBody     []byte
}

// noRedirectClient lets scenarios assert on the OAuth redirect responses.
var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func (ctx *bddTestContext) reset() {
	if ctx.lastResponse != nil && ctx.lastResponse.Body != nil {
		ctx.lastResponse.Body.Close()
	}
	ctx.lastResponse = nil
	ctx.lastBody = nil
	ctx.token = ""
}

func (ctx *bddTestContext) theDatabaseIsClean() error {
	for _, table := range []string{"social_accounts", "users"} {
		if _, err := ctx.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (ctx *bddTestContext) theAPIServerIsRunning() error {
	if ctx.server != nil {
		return nil
	}

	logger := log.New(io.Discard, "", 0)
	verifiers := pkce.NewStore(0)
	adapters := platforms.NewRegistry(
		platforms.NewFacebook(platforms.ConfigFromEnv(platforms.Facebook), nil),
		platforms.NewInstagram(platforms.ConfigFromEnv(platforms.Instagram), nil),
		platforms.NewLinkedIn(platforms.ConfigFromEnv(platforms.LinkedIn), nil),
		platforms.NewSnapchat(platforms.ConfigFromEnv(platforms.Snapchat), verifiers, nil),
		platforms.NewTikTok(platforms.ConfigFromEnv(platforms.TikTok), verifiers, nil),
		platforms.NewTwitter(platforms.ConfigFromEnv(platforms.Twitter), verifiers, nil),
		platforms.NewYouTube(platforms.ConfigFromEnv(platforms.YouTube), nil),
	)
	registry := accounts.New(ctx.db)
	ctx.validator = auth.NewHMACValidator("bdd-test-secret")

	h := handlers.New(handlers.Config{
		Accounts:    registry,
		Adapters:    adapters,
		Dispatcher:  dispatch.New(registry, adapters, logger),
		Verifiers:   verifiers,
		Cache:       insights.NewCache(0),
		Generator:   insights.NewGenerator(logger),
		Prefs:       prefs.NewService(ctx.db),
		Tokens:      ctx.validator,
		FrontendURL: "http://frontend.test",
		Logger:      logger,
	})

	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r)
	ctx.server = httptest.NewServer(r)
	return nil
}

func (ctx *bddTestContext) aUserExistsWithIdAndEmail(id, email string) error {
	_, err := ctx.db.Exec(
		`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, 'Test User', NOW())`,
		id, email)
	return err
}

func (ctx *bddTestContext) iAmAuthenticatedAs(userID string) error {
	ctx.token = ctx.validator.Token(userID)
	return nil
}

func (ctx *bddTestContext) userHasAConnectedAccount(userID, platform, accountID string) error {
	_, err := ctx.db.Exec(`
		INSERT INTO social_accounts (id, user_id, platform, platform_user_id, username, access_token, connected_at)
		VALUES ($1, $2, $3, $4, $5, 'bdd-token', NOW())`,
		accountID, userID, platform, "ext-"+accountID, platform+"-user")
	return err
}

func (ctx *bddTestContext) accountHasEngagementScore(accountID string, score int) error {
	metrics := fmt.Sprintf(`{"engagementScore":%d,"connections":0,"posts":0,"pendingResponses":0,"newMessages":0}`, score)
	_, err := ctx.db.Exec(
		`UPDATE social_accounts SET metrics = $1::jsonb, last_synced = NOW() WHERE id = $2`,
		metrics, accountID)
	return err
}

func (ctx *bddTestContext) iSendAGETRequestTo(path string) error {
	return ctx.iSendARequestTo("GET", path, "")
}

func (ctx *bddTestContext) iSendAPOSTRequestTo(path string) error {
	return ctx.iSendARequestTo("POST", path, "")
}

func (ctx *bddTestContext) iSendAPOSTRequestToWithJSON(path string, body *godog.DocString) error {
	return ctx.iSendARequestTo("POST", path, body.Content)
}

func (ctx *bddTestContext) iSendAPUTRequestToWithJSON(path string, body *godog.DocString) error {
	return ctx.iSendARequestTo("PUT", path, body.Content)
}

func (ctx *bddTestContext) iSendADELETERequestTo(path string) error {
	return ctx.iSendARequestTo("DELETE", path, "")
}

func (ctx *bddTestContext) iSendARequestTo(method, path, body string) error {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ctx.token != "" {
		req.Header.Set("Authorization", "Bearer "+ctx.token)
	}

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		return err
	}
	ctx.lastResponse = resp
	ctx.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (ctx *bddTestContext) theResponseStatusCodeShouldBe(expectedCode int) error {
	if ctx.lastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if ctx.lastResponse.StatusCode != expectedCode {
		return fmt.Errorf("expected status code %d, got %d. Body: %s",
			expectedCode, ctx.lastResponse.StatusCode, string(ctx.lastBody))
	}
	return nil
}

func (ctx *bddTestContext) theResponseShouldRedirectToAURLContaining(fragment string) error {
	if ctx.lastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if ctx.lastResponse.StatusCode != http.StatusFound {
		return fmt.Errorf("expected a 302 redirect, got %d", ctx.lastResponse.StatusCode)
	}
	loc := ctx.lastResponse.Header.Get("Location")
	if !strings.Contains(loc, fragment) {
		return fmt.Errorf("expected redirect containing %q, got %q", fragment, loc)
	}
	return nil
}

func (ctx *bddTestContext) theResponseShouldContainJSONWithSetTo(key, value string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(ctx.lastBody, &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w. Body: %s", err, string(ctx.lastBody))
	}
	actual, ok := data[key]
	if !ok {
		return fmt.Errorf("key %q not found in response: %s", key, string(ctx.lastBody))
	}
	if got := fmt.Sprintf("%v", actual); got != value {
		return fmt.Errorf("expected %q to be %q, got %q", key, value, got)
	}
	return nil
}

func (ctx *bddTestContext) theResponseShouldContainAField(field string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(ctx.lastBody, &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w. Body: %s", err, string(ctx.lastBody))
	}
	if _, ok := data[field]; !ok {
		return fmt.Errorf("field %q not found in response: %s", field, string(ctx.lastBody))
	}
	return nil
}

func (ctx *bddTestContext) theResponseShouldContainError(errorMsg string) error {
	if !strings.Contains(string(ctx.lastBody), errorMsg) {
		return fmt.Errorf("expected error %q not found in response: %s", errorMsg, string(ctx.lastBody))
	}
	return nil
}

func (ctx *bddTestContext) theResponseShouldBeAJSONArrayWithItems(count int) error {
	var data []interface{}
	if err := json.Unmarshal(ctx.lastBody, &data); err != nil {
		return fmt.Errorf("failed to parse JSON array: %w. Body: %s", err, string(ctx.lastBody))
	}
	if len(data) != count {
		return fmt.Errorf("expected %d items, got %d", count, len(data))
	}
	return nil
}

func (ctx *bddTestContext) theAccountShouldNotExist(accountID string) error {
	var exists bool
	err := ctx.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM social_accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("account %s still exists", accountID)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	testCtx := &bddTestContext{}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "postgres://localhost/pulsedash_test?sslmode=disable"
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to test database: %v", err))
	}
	testCtx.db = db

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.server != nil {
			testCtx.server.Close()
			testCtx.server = nil
		}
		return ctx, nil
	})

	ctx.Step(`^the database is clean$`, testCtx.theDatabaseIsClean)
	ctx.Step(`^the API server is running$`, testCtx.theAPIServerIsRunning)
	ctx.Step(`^a user exists with id "([^"]*)" and email "([^"]*)"$`, testCtx.aUserExistsWithIdAndEmail)
	ctx.Step(`^I am authenticated as "([^"]*)"$`, testCtx.iAmAuthenticatedAs)
	ctx.Step(`^the user "([^"]*)" has a connected "([^"]*)" account with id "([^"]*)"$`, testCtx.userHasAConnectedAccount)
	ctx.Step(`^the account "([^"]*)" has an engagement score of (\d+)$`, testCtx.accountHasEngagementScore)
	ctx.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	ctx.Step(`^I send a POST request to "([^"]*)"$`, testCtx.iSendAPOSTRequestTo)
	ctx.Step(`^I send a POST request to "([^"]*)" with JSON:$`, testCtx.iSendAPOSTRequestToWithJSON)
	ctx.Step(`^I send a PUT request to "([^"]*)" with JSON:$`, testCtx.iSendAPUTRequestToWithJSON)
	ctx.Step(`^I send a DELETE request to "([^"]*)"$`, testCtx.iSendADELETERequestTo)
	ctx.Step(`^the response status code should be (\d+)$`, testCtx.theResponseStatusCodeShouldBe)
	ctx.Step(`^the response should redirect to a URL containing "([^"]*)"$`, testCtx.theResponseShouldRedirectToAURLContaining)
	ctx.Step(`^the response should contain JSON with "([^"]*)" set to "([^"]*)"$`, testCtx.theResponseShouldContainJSONWithSetTo)
	ctx.Step(`^the response should contain JSON with "([^"]*)" set to (.+)$`, testCtx.theResponseShouldContainJSONWithSetTo)
	ctx.Step(`^the response should contain a "([^"]*)" field$`, testCtx.theResponseShouldContainAField)
	ctx.Step(`^the response should contain error "([^"]*)"$`, testCtx.theResponseShouldContainError)
	ctx.Step(`^the response should be a JSON array with (\d+) items$`, testCtx.theResponseShouldBeAJSONArrayWithItems)
	ctx.Step(`^the account "([^"]*)" should not exist$`, testCtx.theAccountShouldNotExist)
}

func TestFeatures(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping feature tests")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
