package app

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store/memory"
	"github.com/rawen554/shortlinks/internal/utils"
)

func BenchmarkShortenURL(b *testing.B) {
	env := newTestEnv(b, testConfig, memory.NewMemoryStorage())
	user := env.signUp(b, "bench@b.com")
	bearer := withBearer(user.AccessToken)
	length := 10

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		randPath, _ := utils.GenerateRandomString(length)
		req := models.ShortenReq{URL: fmt.Sprintf("https://%s.ru", randPath)}
		b.StartTimer()

		if w := env.do(b, http.MethodPost, "/url/create", req, bearer); w.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

func BenchmarkRedirect(b *testing.B) {
	env := newTestEnv(b, testConfig, memory.NewMemoryStorage())
	user := env.signUp(b, "bench@b.com")
	link := env.createLink(b, "https://ya.ru", withBearer(user.AccessToken))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if w := env.do(b, http.MethodGet, "/"+link.ShortCode, nil); w.Code != http.StatusTemporaryRedirect {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
	b.StopTimer()
	env.resolver.Wait()
}
