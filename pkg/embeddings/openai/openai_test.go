package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/embeddings"
	"github.com/inkwellhq/satchel/pkg/embeddings/openai"
)

func TestOpenAIEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenAI Embedder Suite")
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// newEchoServer returns a server whose embedding for each input is a single
// float carrying the input's length, which makes order checks trivial.
func newEchoServer(requests *atomic.Int32, failOnRequest int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if failOnRequest > 0 && n == failOnRequest {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}

		var req embedReq
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		Expect(len(req.Input)).To(BeNumerically("<=", embeddings.MaxBatchSize))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		items := make([]item, len(req.Input))
		for i, text := range req.Input {
			items[i] = item{Index: i, Embedding: []float32{float32(len(text))}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": items})
	}))
}

var _ = Describe("Embedder", func() {
	var (
		requests atomic.Int32
		ctx      context.Context
	)

	BeforeEach(func() {
		requests.Store(0)
		ctx = context.Background()
	})

	It("embeds a batch in input order", func() {
		server := newEchoServer(&requests, 0)
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		texts := []string{"a", "bbb", "cc"}
		vecs, err := e.EmbedBatch(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(3))
		Expect(vecs[0]).To(Equal([]float32{1}))
		Expect(vecs[1]).To(Equal([]float32{3}))
		Expect(vecs[2]).To(Equal([]float32{2}))
		Expect(requests.Load()).To(Equal(int32(1)))
	})

	It("splits oversized input into sequential batch calls", func() {
		server := newEchoServer(&requests, 0)
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		texts := make([]string, embeddings.MaxBatchSize+5)
		for i := range texts {
			texts[i] = fmt.Sprintf("%0*d", i+1, 0) // length i+1
		}

		vecs, err := e.EmbedBatch(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(len(texts)))
		Expect(requests.Load()).To(Equal(int32(2)))
		for i, v := range vecs {
			Expect(v).To(Equal([]float32{float32(i + 1)}))
		}
	})

	It("fails the whole operation when a later batch fails", func() {
		server := newEchoServer(&requests, 2)
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		texts := make([]string, embeddings.MaxBatchSize+1)
		for i := range texts {
			texts[i] = "text"
		}

		_, err = e.EmbedBatch(ctx, texts)
		Expect(err).To(MatchError(embeddings.ErrProvider))
	})

	It("sends the bearer token when an API key is configured", func() {
		var sawAuth atomic.Bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "Bearer sk-test" {
				sawAuth.Store(true)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"index": 0, "embedding": []float32{0.5}}},
			})
		}))
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL, APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		_, err = e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(sawAuth.Load()).To(BeTrue())
	})
})
