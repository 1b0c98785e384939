// Command seed generates fake rosters and imports them through the API.
package main

import (
	_ "github.com/joho/godotenv/autoload"

	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/internal/rostergen"
	"github.com/okian/teamalloc/pkg/logger"
)

// Default seeding parameters.
const (
	defaultUniversities = 3
	defaultSize         = 30
	defaultTimeout      = 30 * time.Second
)

type university struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type student struct {
	ID                string            `json:"id"`
	UniversityID      string            `json:"university_id"`
	GivenName         string            `json:"given_name"`
	FamilyName        string            `json:"family_name"`
	ContestExperience int               `json:"contest_experience"`
	Rating1           float64           `json:"rating1"`
	Rating2           float64           `json:"rating2"`
	CompletedCourses  []int             `json:"completed_courses,omitempty"`
	SpokenLanguages   []string          `json:"spoken_languages"`
	Experience        map[string]string `json:"experience"`
	Preference        string            `json:"preference,omitempty"`
	Exclusions        string            `json:"exclusions,omitempty"`
}

type roster struct {
	Universities []university `json:"universities"`
	Students     []student    `json:"students"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		contest  = flag.String("contest", "demo", "Contest ID to seed")
		unis     = flag.Int("universities", defaultUniversities, "Number of universities")
		size     = flag.Int("size", defaultSize, "Students per university")
		seed     = flag.Int64("seed", 1, "Random seed")
		allocate = flag.String("allocate", "", "Run a synchronous allocation for this stage after seeding (early_bird, final, manual)")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("seed")
	ctx := context.Background()
	client := &http.Client{Timeout: *timeout}

	body := generate(*contest, *unis, *size, *seed)
	if err := post(ctx, client, fmt.Sprintf("%s/contests/%s/roster", *baseURL, *contest), body, os.Stdout); err != nil {
		log.Fatal(ctx, "roster import failed", logger.Error(err))
	}
	log.Info(ctx, "roster imported",
		logger.String("contest_id", *contest),
		logger.Int("universities", len(body.Universities)),
		logger.Int("students", len(body.Students)),
	)

	if *allocate == "" {
		return
	}
	req := map[string]string{"stage": *allocate}
	if err := post(ctx, client, fmt.Sprintf("%s/contests/%s/allocations/sync", *baseURL, *contest), req, os.Stdout); err != nil {
		log.Fatal(ctx, "allocation failed", logger.Error(err))
	}
}

// generate builds n university rosters from consecutive seeds.
func generate(contestID string, n, size int, seed int64) roster {
	var out roster
	for i := 1; i <= n; i++ {
		uniID := fmt.Sprintf("u%d", i)
		out.Universities = append(out.Universities, university{ID: uniID, Name: fmt.Sprintf("University %d", i)})
		recs := rostergen.Generate(
			rostergen.WithSize(size),
			rostergen.WithSeed(seed+int64(i)),
			rostergen.WithUniversity(contestID, uniID),
		)
		for j := range recs {
			out.Students = append(out.Students, toStudent(&recs[j]))
		}
	}
	return out
}

func toStudent(r *model.StudentRecord) student {
	exp := make(map[string]string, model.NumLanguages)
	for l, level := range r.Experience {
		exp[model.Language(l).String()] = level.String()
	}
	return student{
		ID:                r.ID,
		UniversityID:      r.UniversityID,
		GivenName:         r.GivenName,
		FamilyName:        r.FamilyName,
		ContestExperience: r.ContestExperience,
		Rating1:           r.Rating1,
		Rating2:           r.Rating2,
		CompletedCourses:  r.CompletedCourses,
		SpokenLanguages:   r.SpokenLanguages,
		Experience:        exp,
		Preference:        r.Preference,
		Exclusions:        r.Exclusions,
	}
}

func post(ctx context.Context, client *http.Client, url string, v any, out io.Writer) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post %s: %s: %s", url, resp.Status, bytes.TrimSpace(msg))
	}
	_, err = io.Copy(out, resp.Body)
	return err
}
