package kb_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/chunker"
	"github.com/inkwellhq/satchel/pkg/kb"
	testutils "github.com/inkwellhq/satchel/pkg/utils/test"
	"github.com/inkwellhq/satchel/pkg/vector"
)

func TestKB(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Knowledge Base Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *testutils.MockStore
		embedder *testutils.MockEmbedder
		service  *kb.Service
		dir      string
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = testutils.NewMockStore()
		embedder = testutils.NewMockEmbedder()

		splitter, err := chunker.New(200, 20)
		Expect(err).NotTo(HaveOccurred())

		service = kb.NewService(store, embedder, splitter, zap.NewNop())
		dir = GinkgoT().TempDir()
	})

	writeDoc := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Describe("Ingest", func() {
		It("stores every chunk of a document in one insert", func() {
			path := writeDoc("notes.txt", "First paragraph.\n\nSecond paragraph.")

			result, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Name).To(Equal("notes.txt"))
			Expect(result.Type).To(Equal("txt"))
			Expect(result.ChunkCount).To(BeNumerically(">", 0))
			Expect(result.DocID).To(HaveLen(32))

			chunks := store.Chunks[result.DocID]
			Expect(chunks).To(HaveLen(result.ChunkCount))
			for i, chunk := range chunks {
				Expect(chunk.Index).To(Equal(i))
				Expect(chunk.Embedding).NotTo(BeEmpty())
			}
		})

		It("gives re-uploads of the same file distinct document IDs", func() {
			path := writeDoc("notes.txt", "Same content both times.")

			first, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())
			second, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.DocID).NotTo(Equal(second.DocID))
			Expect(store.Docs).To(HaveLen(2))
		})

		It("rejects disallowed file types before touching the file", func() {
			_, err := service.Ingest(ctx, filepath.Join(dir, "ghost.exe"), "ghost.exe")
			Expect(err).To(MatchError(kb.ErrValidation))
		})

		It("rejects documents with no extractable text", func() {
			path := writeDoc("blank.txt", "   \n  ")
			_, err := service.Ingest(ctx, path, "blank.txt")
			Expect(err).To(MatchError(kb.ErrValidation))
		})

		It("writes nothing when embedding fails", func() {
			path := writeDoc("notes.txt", "Some content.")
			embedder.FailOn = "Some content."

			_, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).To(HaveOccurred())
			Expect(store.Docs).To(BeEmpty())
			Expect(store.Chunks).To(BeEmpty())
		})

		It("writes nothing when the store insert fails", func() {
			path := writeDoc("notes.txt", "Some content.")
			store.InsertErr = errors.New("store down")

			_, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).To(MatchError(ContainSubstring("store down")))
			Expect(store.Docs).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes a stored document and reports the chunk count", func() {
			path := writeDoc("notes.txt", "Deletable content.")
			result, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())

			n, err := service.Delete(ctx, result.DocID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(result.ChunkCount))
		})

		It("returns ErrNotFound for unknown documents", func() {
			_, err := service.Delete(ctx, "nope")
			Expect(err).To(MatchError(kb.ErrNotFound))
		})

		It("rejects an empty document ID", func() {
			_, err := service.Delete(ctx, "")
			Expect(err).To(MatchError(kb.ErrValidation))
		})
	})

	Describe("GetPreview", func() {
		It("returns metadata and leading chunks in order", func() {
			path := writeDoc("notes.txt", "First paragraph.\n\nSecond paragraph.")
			result, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())

			preview, err := service.GetPreview(ctx, result.DocID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(preview.Meta.Name).To(Equal("notes.txt"))
			Expect(preview.Chunks).To(HaveLen(result.ChunkCount))
			Expect(preview.Chunks[0].Index).To(Equal(0))
		})

		It("returns ErrNotFound for unknown documents", func() {
			_, err := service.GetPreview(ctx, "nope", 0)
			Expect(err).To(MatchError(kb.ErrNotFound))
		})
	})

	Describe("ResolveName", func() {
		It("resolves a name to the newest matching document", func() {
			store.Docs["old"] = vector.DocumentMeta{
				DocID: "old", Name: "notes.txt", CreatedAt: time.Now().Add(-time.Hour),
			}
			store.Chunks["old"] = []vector.Chunk{{}}
			store.Docs["new"] = vector.DocumentMeta{
				DocID: "new", Name: "notes.txt", CreatedAt: time.Now(),
			}
			store.Chunks["new"] = []vector.Chunk{{}}

			docID, err := service.ResolveName(ctx, "notes.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(docID).To(Equal("new"))
		})

		It("returns ErrNotFound for unknown names", func() {
			_, err := service.ResolveName(ctx, "missing.txt")
			Expect(err).To(MatchError(kb.ErrNotFound))
		})
	})

	Describe("Exists", func() {
		It("reports stored documents", func() {
			path := writeDoc("notes.txt", "Content here.")
			result, err := service.Ingest(ctx, path, "notes.txt")
			Expect(err).NotTo(HaveOccurred())

			exists, err := service.Exists(ctx, result.DocID)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = service.Exists(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})
})
