// Minimal end-to-end smoke run against a live proposals API.
// Needs a feature with creation and votes enabled (FEATURE_ID).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	baseURL   = getenv("API_URL", "http://localhost:8080/v1")
	redisURL  = getenv("REDIS_URL", "redis://127.0.0.1:6379/0")
	jwtSecret = getenv("JWT_SECRET", "")
	featureID = getenv("FEATURE_ID", "1")
	userID    = getenv("SMOKE_USER_ID", "1")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	ctx := context.Background()
	rdb := mustRedis()
	defer rdb.Close()

	user := mint(userID, false)
	admin := mint(userID, true)

	checkVerifications()
	id := createProposal(user)
	castVote(user, id)
	castVote(user, id, http.StatusConflict)
	checkLedger(ctx, rdb, id)
	checkRandomOrderIsStable()
	answer(admin, id)
	checkShow(id)

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func mint(sub string, admin bool) string {
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(10 * time.Minute).Unix()}
	if admin {
		claims["admin"] = true
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return tok
}

// ----------------------------- proposals

func checkVerifications() {
	var resp struct{ Methods []struct{ Name string } }
	doJSON("GET", "/verifications", nil, &resp, http.StatusOK)
	log.Printf("verifications: %d methods", len(resp.Methods))
}

func createProposal(tok string) int64 {
	var resp struct{ ID int64 }
	doAuth(tok, "POST", "/features/"+featureID+"/proposals", map[string]any{
		"title": "smoke test " + uuid.NewString(),
		"body":  "created by the API smoke run",
	}, &resp, http.StatusCreated)
	if resp.ID == 0 {
		log.Fatal("create: empty id")
	}
	return resp.ID
}

func castVote(tok string, id int64, want ...int) {
	status := http.StatusCreated
	if len(want) > 0 {
		status = want[0]
	}
	doAuth(tok, "POST", "/proposals/"+strconv.FormatInt(id, 10)+"/votes", nil, nil, status)
}

func checkLedger(ctx context.Context, rdb *redis.Client, id int64) {
	ok, err := rdb.SIsMember(ctx, "proposal:voters:"+strconv.FormatInt(id, 10), userID).Result()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if !ok {
		log.Fatal("ledger: voter not recorded")
	}
}

func checkRandomOrderIsStable() {
	type listing struct {
		Seed      uint64
		Proposals struct{ Items []struct{ ID int64 } }
	}
	var first, second listing
	path := "/features/" + featureID + "/proposals?order=random&per_page=50"
	doJSON("GET", path, nil, &first, http.StatusOK)
	doJSON("GET", path+"&seed="+strconv.FormatUint(first.Seed, 10), nil, &second, http.StatusOK)
	if len(first.Proposals.Items) != len(second.Proposals.Items) {
		log.Fatal("random: page sizes differ for the same seed")
	}
	for i := range first.Proposals.Items {
		if first.Proposals.Items[i].ID != second.Proposals.Items[i].ID {
			log.Fatal("random: order differs for the same seed")
		}
	}
}

func answer(tok string, id int64) {
	doAuth(tok, "PUT", "/admin/proposals/"+strconv.FormatInt(id, 10)+"/answer", map[string]any{
		"state":         "accepted",
		"justification": map[string]string{"en": "Smoke tested"},
	}, nil, http.StatusOK)
}

func checkShow(id int64) {
	var resp struct {
		Answer struct{ Badge string }
	}
	doJSON("GET", "/proposals/"+strconv.FormatInt(id, 10), nil, &resp, http.StatusOK)
	if resp.Answer.Badge != "Accepted" {
		log.Fatalf("show: want Accepted badge, got %q", resp.Answer.Badge)
	}
}

// ----------------------------- helpers

func mustRedis() *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	return redis.NewClient(opt)
}

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
