package migrator

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type (
	// SumFile records a chained hash of every SQL migration file so edits to
	// files that may already be applied are detected before anything runs.
	// Each file's hash incorporates the previous file's hash, and the total
	// hash covers all of them.
	SumFile struct {
		files     []fileEntry // List of files with their hashes
		TotalHash string      // Total hash (h1 format) = SHA256(all file hashes)
	}

	// fileEntry represents a single file with its hash in the sum file
	fileEntry struct {
		Name string // File name
		Hash []byte // Raw SHA256 hash bytes
	}
)

// NewSumFile creates a new empty SumFile ready to accept files.
//
// Example:
//
//	sumFile := NewSumFile()
//	sumFile.AddFile("20250101120000_create_users.sql", content1)
//	sumFile.AddFile("20250101120500_create_bots.sql", content2)
func NewSumFile() *SumFile {
	return &SumFile{
		files: make([]fileEntry, 0),
	}
}

// LoadSumFile reads a SumFile in the format produced by WriteTo:
//   - First line: total hash (h1:base64-encoded-hash)
//   - Following lines: <filename> <h1:base64-encoded-hash>
//
// Example:
//
//	file, err := os.Open("db/migrations/dbkeeper.sum")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
//
//	sumFile, err := migrator.LoadSumFile(file)
func LoadSumFile(r io.Reader) (*SumFile, error) {
	scanner := bufio.NewScanner(r)
	sumFile := NewSumFile()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}
		return sumFile, nil
	}

	totalHashLine := strings.TrimSpace(scanner.Text())
	if totalHashLine == "" {
		return sumFile, nil
	}

	if !strings.HasPrefix(totalHashLine, "h1:") {
		return nil, errors.Errorf("invalid total hash format: %s", totalHashLine)
	}
	sumFile.TotalHash = totalHashLine

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid file entry format: %s", line)
		}

		filename, h1Hash := parts[0], parts[1]
		if !strings.HasPrefix(h1Hash, "h1:") {
			return nil, errors.Errorf("invalid hash format for file %s: %s", filename, h1Hash)
		}

		hashBytes, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h1Hash, "h1:"))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode hash for file %s", filename)
		}

		sumFile.files = append(sumFile.files, fileEntry{Name: filename, Hash: hashBytes})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum file")
	}

	return sumFile, nil
}

// AddFile adds a file with the given name and content, computing its hash
// based on the content and the previous file's hash (chained hashing).
//
// The chaining works as follows:
//   - First file: hash = SHA256(content)
//   - Subsequent files: hash = SHA256(content + previousHash)
func (s *SumFile) AddFile(name string, content []byte) {
	hasher := sha256.New()
	hasher.Write(content)

	if len(s.files) > 0 {
		hasher.Write(s.files[len(s.files)-1].Hash)
	}

	s.files = append(s.files, fileEntry{Name: name, Hash: hasher.Sum(nil)})
	s.computeTotalHash()
}

// Add reads r fully and adds it with AddFile.
func (s *SumFile) Add(name string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", name)
	}

	s.AddFile(name, content)
	return nil
}

// Files returns the count of files in the sum file
func (s *SumFile) Files() int {
	return len(s.files)
}

// Equal reports whether both sum files list the same files with the same
// hashes, in the same order.
func (s *SumFile) Equal(other *SumFile) bool {
	if other == nil || len(s.files) != len(other.files) {
		return false
	}

	for i, f := range s.files {
		if f.Name != other.files[i].Name || !bytes.Equal(f.Hash, other.files[i].Hash) {
			return false
		}
	}
	return true
}

// Diff returns the names of files whose entries differ between s (the
// expected state) and actual, including files only present on one side.
func (s *SumFile) Diff(actual *SumFile) []string {
	expected := make(map[string][]byte, len(s.files))
	for _, f := range s.files {
		expected[f.Name] = f.Hash
	}

	var changed []string
	seen := make(map[string]bool, len(actual.files))
	for _, f := range actual.files {
		seen[f.Name] = true
		if hash, ok := expected[f.Name]; !ok || !bytes.Equal(hash, f.Hash) {
			changed = append(changed, f.Name)
		}
	}

	for _, f := range s.files {
		if !seen[f.Name] {
			changed = append(changed, f.Name)
		}
	}

	return changed
}

// WriteTo writes the sum file to the provided writer.
// It implements the io.WriterTo interface.
//
// Example output:
//
//	h1:dG90YWxoYXNoZXhhbXBsZQ==
//	20250101120000_create_users.sql h1:dGVzdGRhdGE=
//	20250101120500_create_bots.sql h1:bW9yZXRlc3Q=
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash)
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, file := range s.files {
		n, err := fmt.Fprintf(w, "%s h1:%s\n", file.Name, base64.StdEncoding.EncodeToString(file.Hash))
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}

// computeTotalHash calculates the total hash as SHA256 of all file hashes concatenated
func (s *SumFile) computeTotalHash() {
	if len(s.files) == 0 {
		s.TotalHash = ""
		return
	}

	hasher := sha256.New()
	for _, file := range s.files {
		hasher.Write(file.Hash)
	}

	s.TotalHash = "h1:" + base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}
