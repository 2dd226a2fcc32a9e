package npm

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/qrafty-ai/opencode-kanban/internal/logger"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ArtifactFileMode is the mode of promoted archives.
	ArtifactFileMode os.FileMode = 0o644

	// ChecksumFunction is used to verify promoted archives.
	ChecksumFunction crypto.Hash = crypto.SHA512

	integrityPrefix = "sha512-"
)

var (
	// ErrPackToolFailure is returned when the pack tool fails or reports nothing usable.
	ErrPackToolFailure = errors.New("pack tool failure")
	// ErrArtifactMissing is returned when the reported archive is not in the output directory.
	ErrArtifactMissing = errors.New("pack artifact missing")
	// ErrChecksumMismatch is returned when the archive differs from the integrity npm reported.
	ErrChecksumMismatch = errors.New("archive checksum mismatch")

	errHashUnavailable = errors.New("hash function unavailable")
)

// Artifact is an archive placed in the output directory under its final name.
type Artifact struct {
	// Path is the final archive location.
	Path string
	// Size is the archive size in bytes.
	Size int64
	// Checksum is the base64 SHA-512 of the promoted archive.
	Checksum string
	// Result is the tool's report for the archive.
	Result PackResult
}

// Packer packs staged directories and names the resulting archives.
type Packer struct {
	tool Tool
}

// NewPacker returns a Packer using tool.
func NewPacker(tool Tool) *Packer {
	return &Packer{tool: tool}
}

// Pack packs stagingDir into outputDir and renames the archive to name,
// replacing an earlier archive of the same name.
func (p *Packer) Pack(ctx context.Context, stagingDir, outputDir, name string) (*Artifact, error) {
	output, err := p.tool.Pack(ctx, stagingDir, outputDir)
	if err != nil {
		return nil, err
	}

	results, err := ParsePackOutput(output)
	if err != nil {
		return nil, err
	}

	result := results[0]
	generated := filepath.Join(outputDir, result.Filename)

	info, err := os.Stat(generated)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, generated)
	}

	expected, err := reportedChecksum(result.Integrity)
	if err != nil {
		return nil, err
	}

	final := filepath.Join(outputDir, name)

	checksum, err := promote(generated, final, expected)
	if err != nil {
		return nil, fmt.Errorf("rename %s to %s: %w", result.Filename, name, err)
	}

	logger.InfoKV(ctx, "Packed artifact",
		"artifact", final,
		"generated", result.Filename,
		"size", info.Size(),
		"entries", result.EntryCount,
		"verified", expected != nil,
	)

	return &Artifact{
		Path:     final,
		Size:     info.Size(),
		Checksum: base64.StdEncoding.EncodeToString(checksum),
		Result:   result,
	}, nil
}

// promote moves generated to final with go-update, which writes the new
// archive next to final and swaps it in. When expected is set the archive
// must match it. The SHA-512 of the archive is returned.
func promote(generated, final string, expected []byte) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(generated))
	if err != nil {
		return nil, err
	}

	checksum, err := sum(data)
	if err != nil {
		return nil, err
	}

	if expected != nil && !bytes.Equal(expected, checksum) {
		_ = os.Remove(generated)

		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, generated)
	}

	if generated == final {
		return checksum, nil
	}

	// go-update swaps an existing target, so start from an empty one.
	created := false

	if _, err = os.Stat(final); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		placeholder, err = os.OpenFile(filepath.Clean(final), os.O_CREATE|os.O_WRONLY, ArtifactFileMode)
		if err != nil {
			return nil, err
		}

		if err = placeholder.Close(); err != nil {
			return nil, err
		}

		created = true
	} else if err != nil {
		return nil, err
	}

	options := goupdate.Options{
		TargetPath: final,
		TargetMode: ArtifactFileMode,
		Checksum:   expected,
		Hash:       ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(final)
		}

		return nil, err
	}

	if err = os.Remove(generated); err != nil {
		return nil, fmt.Errorf("remove generated archive: %w", err)
	}

	return checksum, nil
}

// reportedChecksum extracts the SHA-512 digest from npm's subresource
// integrity string ("sha512-<base64>"). An empty string yields nil.
func reportedChecksum(integrity string) ([]byte, error) {
	if strings.TrimSpace(integrity) == "" {
		return nil, nil
	}

	for _, entry := range strings.Fields(integrity) {
		digest, found := strings.CutPrefix(entry, integrityPrefix)
		if !found {
			continue
		}

		digest, _, _ = strings.Cut(digest, "?")

		decoded, err := base64.StdEncoding.DecodeString(digest)
		if err != nil || len(decoded) != ChecksumFunction.Size() {
			return nil, fmt.Errorf("%w: integrity %q is not a SHA-512 digest", ErrPackToolFailure, entry)
		}

		return decoded, nil
	}

	return nil, fmt.Errorf("%w: integrity %q has no sha512 entry", ErrPackToolFailure, integrity)
}

func sum(data []byte) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
