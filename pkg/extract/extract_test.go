package extract_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/extract"
)

func TestExtract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extract Suite")
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

func writeDocx(dir, name, documentXML string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	Expect(err).NotTo(HaveOccurred())
	_, err = entry.Write([]byte(documentXML))
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())
	return path
}

var _ = Describe("Allowed", func() {
	It("accepts the ingestion allow-list case-insensitively", func() {
		for _, ext := range extract.AllowedTypes() {
			Expect(extract.Allowed(ext)).To(BeTrue(), ext)
		}
		Expect(extract.Allowed("PDF")).To(BeTrue())
	})

	It("rejects everything else", func() {
		Expect(extract.Allowed("exe")).To(BeFalse())
		Expect(extract.Allowed("")).To(BeFalse())
	})
})

var _ = Describe("Ext", func() {
	It("lowercases and strips the dot", func() {
		Expect(extract.Ext("Report.PDF")).To(Equal("pdf"))
		Expect(extract.Ext("notes.txt")).To(Equal("txt"))
		Expect(extract.Ext("no-extension")).To(BeEmpty())
	})
})

var _ = Describe("Text", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("rejects unsupported types", func() {
		path := writeFile(dir, "payload.exe", "binary")
		_, err := extract.Text(path)
		Expect(err).To(MatchError(extract.ErrUnsupportedType))
	})

	It("reads plain text files", func() {
		path := writeFile(dir, "notes.txt", "  hello world\n")
		text, err := extract.Text(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello world"))
	})

	It("returns ErrEmptyDocument for whitespace-only content", func() {
		path := writeFile(dir, "blank.txt", "   \n\t\n")
		_, err := extract.Text(path)
		Expect(err).To(MatchError(extract.ErrEmptyDocument))
	})

	It("strips markdown formatting and keeps paragraph boundaries", func() {
		path := writeFile(dir, "guide.md", "# Title\n\nSome **bold** text.\n\nSecond paragraph.\n")
		text, err := extract.Text(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("Title"))
		Expect(text).To(ContainSubstring("Some bold text."))
		Expect(text).To(ContainSubstring("Second paragraph."))
		Expect(text).NotTo(ContainSubstring("**"))
		Expect(text).NotTo(ContainSubstring("#"))
	})

	It("extracts paragraph runs from docx archives", func() {
		documentXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
		path := writeDocx(dir, "report.docx", documentXML)

		text, err := extract.Text(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("First paragraph."))
		Expect(text).To(ContainSubstring("Second paragraph."))
	})

	It("fails cleanly on a binary .doc that is not a zip archive", func() {
		path := writeFile(dir, "legacy.doc", "\xd0\xcf\x11\xe0 not a zip")
		_, err := extract.Text(path)
		Expect(err).To(HaveOccurred())
	})

	It("fails cleanly on a missing file", func() {
		_, err := extract.Text(filepath.Join(dir, "missing.txt"))
		Expect(err).To(HaveOccurred())
	})
})
