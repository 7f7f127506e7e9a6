package core

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EvidenceBundle describes the artifacts of one report generation: the CSV,
// its digest manifest, and the ZIP bundling both. Immutable once returned.
type EvidenceBundle struct {
	CSVPath     string    `json:"csv_path"`
	HashPath    string    `json:"hash_path"`
	ZipPath     string    `json:"zip_path"`
	Digest      string    `json:"digest"` // SHA-256 hex over the CSV bytes
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportBuilder writes findings as a canonical CSV, hashes it, and bundles
// CSV + manifest (+ auxiliary artifacts such as chart PNGs) into a deflate
// ZIP. Every Build call uses fresh timestamped paths, so repeated runs never
// corrupt prior bundles.
type ReportBuilder struct {
	dir    string
	zipDir string
	logger zerolog.Logger

	// now is swappable for deterministic path tests.
	now func() time.Time
}

// NewReportBuilder creates a builder rooted at the configured report dirs.
func NewReportBuilder(cfg Reports, logger zerolog.Logger) *ReportBuilder {
	return &ReportBuilder{
		dir:    cfg.Dir,
		zipDir: cfg.ZipDir,
		logger: logger.With().Str("component", "report_builder").Logger(),
		now:    time.Now,
	}
}

// Build writes one report: header + rows to CSV, SHA-256 manifest, then the
// ZIP bundle. The digest is computed over the CSV's final bytes only after the
// write completes, so a manifest never describes a partially written file.
// aux paths (e.g. visualizations) are added to the ZIP when they exist.
func (b *ReportBuilder) Build(domain Domain, header []string, rows [][]string, aux ...string) (*EvidenceBundle, error) {
	ts := b.now().Format("20060102_150405")
	domainDir := filepath.Join(b.dir, domain.String())
	if err := os.MkdirAll(domainDir, 0755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	if err := os.MkdirAll(b.zipDir, 0755); err != nil {
		return nil, fmt.Errorf("creating zip dir: %w", err)
	}

	csvPath := filepath.Join(domainDir, fmt.Sprintf("%s_analysis_%s.csv", domain, ts))
	if err := writeCSV(csvPath, header, rows); err != nil {
		return nil, err
	}

	digest, err := FileSHA256(csvPath)
	if err != nil {
		return nil, fmt.Errorf("hashing report: %w", err)
	}

	hashPath := filepath.Join(domainDir, fmt.Sprintf("hash_%s.txt", ts))
	manifest := fmt.Sprintf("SHA256: %s\nFile: %s\n", digest, csvPath)
	if err := os.WriteFile(hashPath, []byte(manifest), 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	zipPath := filepath.Join(b.zipDir, fmt.Sprintf("%s_report_%s.zip", domain, ts))
	members := append([]string{csvPath, hashPath}, aux...)
	if err := writeZip(zipPath, members); err != nil {
		return nil, err
	}

	bundle := &EvidenceBundle{
		CSVPath:     csvPath,
		HashPath:    hashPath,
		ZipPath:     zipPath,
		Digest:      digest,
		GeneratedAt: b.now(),
	}

	b.logger.Info().
		Str("domain", domain.String()).
		Int("rows", len(rows)).
		Str("csv", csvPath).
		Str("zip", zipPath).
		Str("sha256", digest).
		Msg("evidence bundle written")

	return bundle, nil
}

// writeCSV writes header and rows and closes the file before returning, so
// the digest step always sees final bytes.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing csv: %w", err)
	}
	return f.Close()
}

// writeZip bundles the members into a flat deflate-compressed archive.
func writeZip(path string, members []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating zip: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, member := range members {
		if err := addZipMember(zw, member); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing zip: %w", err)
	}
	return nil
}

func addZipMember(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		// Auxiliary artifacts are optional; skip what is not there.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening zip member %s: %w", path, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("adding zip member %s: %w", path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("compressing zip member %s: %w", path, err)
	}
	return nil
}

// FileSHA256 computes the hex SHA-256 digest of a file, streaming in chunks.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseManifest reads a digest manifest ("SHA256: <hex>" / "File: <path>").
func ParseManifest(path string) (digest, file string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading manifest: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "SHA256: "):
			digest = strings.TrimSpace(strings.TrimPrefix(line, "SHA256: "))
		case strings.HasPrefix(line, "File: "):
			file = strings.TrimSpace(strings.TrimPrefix(line, "File: "))
		}
	}
	if digest == "" || file == "" {
		return "", "", fmt.Errorf("manifest %s is missing SHA256 or File line", path)
	}
	return digest, file, nil
}

// VerifyManifest recomputes the digest of the CSV a manifest points at and
// compares it against the recorded value. A mismatch is returned as an
// IntegrityError — tampering is reported, never repaired.
func VerifyManifest(manifestPath string) error {
	want, file, err := ParseManifest(manifestPath)
	if err != nil {
		return err
	}
	got, err := FileSHA256(file)
	if err != nil {
		return fmt.Errorf("rehashing %s: %w", file, err)
	}
	if !strings.EqualFold(want, got) {
		return &IntegrityError{Path: file, Want: want, Got: got}
	}
	return nil
}
