// Package backup exports the user directory to CSV and loads it back. The
// column layout is fixed so dumps from different deployments stay
// interchangeable.
package backup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediconsult/mediconsult/internal/domain/identity"
)

// Header is the fixed CSV column layout.
var Header = []string{
	"id", "name", "national_id", "enrollment_code", "role",
	"password_hash", "created_at", "active",
}

const listBatchSize = 500

// ImportResult counts the outcome of an import run.
type ImportResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Service reads and writes user directory dumps.
type Service struct {
	users  identity.UserRepository
	logger zerolog.Logger
}

func NewService(users identity.UserRepository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// Export writes every user to w, including inactive accounts and password
// hashes, so an import restores authentication as it was.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	exported := 0
	for offset := 0; ; offset += listBatchSize {
		users, _, err := s.users.List(ctx, listBatchSize, offset)
		if err != nil {
			return exported, fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			break
		}
		for _, u := range users {
			if err := cw.Write(userRecord(u)); err != nil {
				return exported, err
			}
			exported++
		}
		if len(users) < listBatchSize {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return exported, err
	}

	s.logger.Info().Int("users", exported).Msg("user backup exported")
	return exported, nil
}

func userRecord(u *identity.User) []string {
	return []string{
		u.ID.String(),
		u.Name,
		deref(u.NationalID),
		deref(u.EnrollmentCode),
		u.Role,
		u.PasswordHash,
		u.CreatedAt.Format(time.RFC3339),
		strconv.FormatBool(u.Active),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Import reads a dump produced by Export. Rows whose identifier already
// exists are skipped, so re-importing the same file is harmless. Malformed
// rows are counted and logged, never fatal.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("unexpected CSV header %v", header)
	}

	res := &ImportResult{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Errors++
			s.logger.Warn().Err(err).Msg("backup row unreadable")
			continue
		}

		u, err := parseRecord(record)
		if err != nil {
			res.Errors++
			s.logger.Warn().Err(err).Msg("backup row invalid")
			continue
		}

		exists, err := s.identifierExists(ctx, u)
		if err != nil {
			res.Errors++
			s.logger.Warn().Err(err).Str("user", u.Name).Msg("backup lookup failed")
			continue
		}
		if exists {
			res.Skipped++
			continue
		}

		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, identity.ErrDuplicateIdentifier) {
				res.Skipped++
				continue
			}
			res.Errors++
			s.logger.Warn().Err(err).Str("user", u.Name).Msg("backup row rejected")
			continue
		}
		res.Loaded++
	}

	s.logger.Info().
		Int("loaded", res.Loaded).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("user backup imported")
	return res, nil
}

func headerMatches(got []string) bool {
	if len(got) != len(Header) {
		return false
	}
	for i := range Header {
		if got[i] != Header[i] {
			return false
		}
	}
	return true
}

func parseRecord(record []string) (*identity.User, error) {
	if len(record) != len(Header) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(Header), len(record))
	}

	id, err := uuid.Parse(record[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", record[0])
	}
	if !identity.ValidRole(record[4]) {
		return nil, fmt.Errorf("unknown role %q", record[4])
	}
	active, err := strconv.ParseBool(record[7])
	if err != nil {
		return nil, fmt.Errorf("invalid active flag %q", record[7])
	}

	u := &identity.User{
		ID:           id,
		Name:         record[1],
		Role:         record[4],
		PasswordHash: record[5],
		Active:       active,
	}
	if record[2] != "" {
		v := record[2]
		u.NationalID = &v
	}
	if record[3] != "" {
		v := record[3]
		u.EnrollmentCode = &v
	}
	if u.Identifier() == "" {
		return nil, fmt.Errorf("row for %q carries no identifier", u.Name)
	}
	return u, nil
}

func (s *Service) identifierExists(ctx context.Context, u *identity.User) (bool, error) {
	lookups := []func() (*identity.User, error){}
	if u.NationalID != nil {
		lookups = append(lookups, func() (*identity.User, error) {
			return s.users.GetByNationalID(ctx, *u.NationalID)
		})
	}
	if u.EnrollmentCode != nil {
		lookups = append(lookups, func() (*identity.User, error) {
			return s.users.GetByEnrollmentCode(ctx, *u.EnrollmentCode)
		})
	}
	for _, lookup := range lookups {
		_, err := lookup()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}
