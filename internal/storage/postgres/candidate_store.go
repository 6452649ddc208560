package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listing-radar/internal/domain"
	"listing-radar/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	natural_key, symbol, display_name, chain_id, token_address, source,
	created_at, price_usd, liquidity_usd, volume_24h_usd,
	fully_diluted_value, links, fetched_at, first_seen_at
`

// Upsert stores a candidate keyed on its natural key. A conflicting write
// merges only the enrichment fields; identity fields are write-once.
func (s *CandidateStore) Upsert(ctx context.Context, c *domain.TokenCandidate) error {
	if c == nil || c.Symbol == "" || !c.Source.IsValid() {
		return storage.ErrInvalidInput
	}

	links, err := json.Marshal(linksOrEmpty(c.Links))
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}

	query := `
		INSERT INTO candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (natural_key) DO UPDATE SET
			price_usd           = COALESCE(EXCLUDED.price_usd, candidates.price_usd),
			liquidity_usd       = COALESCE(EXCLUDED.liquidity_usd, candidates.liquidity_usd),
			volume_24h_usd      = COALESCE(EXCLUDED.volume_24h_usd, candidates.volume_24h_usd),
			fully_diluted_value = COALESCE(EXCLUDED.fully_diluted_value, candidates.fully_diluted_value),
			links               = candidates.links || EXCLUDED.links,
			fetched_at          = EXCLUDED.fetched_at
	`

	_, err = s.pool.Exec(ctx, query,
		c.NaturalKey(),
		c.Symbol,
		nullString(c.DisplayName),
		nullString(c.ChainID),
		nullString(c.TokenAddress),
		string(c.Source),
		c.CreatedAt,
		c.PriceUSD,
		c.LiquidityUSD,
		c.Volume24hUSD,
		c.FullyDilutedValue,
		links,
		c.FetchedAt,
		c.FirstSeenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

// GetByKey retrieves a candidate by natural key. Returns ErrNotFound if
// not exists.
func (s *CandidateStore) GetByKey(ctx context.Context, key string) (*domain.TokenCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		WHERE natural_key = $1
	`

	c, err := scanCandidate(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by key: %w", err)
	}
	return c, nil
}

// Recent returns the most recently created candidates, newest first.
func (s *CandidateStore) Recent(ctx context.Context, limit int) ([]*domain.TokenCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		ORDER BY created_at DESC, natural_key ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// BySource returns all candidates from one source, newest first.
func (s *CandidateStore) BySource(ctx context.Context, source domain.Source) ([]*domain.TokenCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		WHERE source = $1
		ORDER BY created_at DESC, natural_key ASC
	`

	rows, err := s.pool.Query(ctx, query, string(source))
	if err != nil {
		return nil, fmt.Errorf("get candidates by source: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// scanCandidate scans a single row into a TokenCandidate.
func scanCandidate(row pgx.Row) (*domain.TokenCandidate, error) {
	var (
		c            domain.TokenCandidate
		naturalKey   string
		sourceStr    string
		displayName  *string
		chainID      *string
		tokenAddress *string
		links        []byte
	)

	err := row.Scan(
		&naturalKey,
		&c.Symbol,
		&displayName,
		&chainID,
		&tokenAddress,
		&sourceStr,
		&c.CreatedAt,
		&c.PriceUSD,
		&c.LiquidityUSD,
		&c.Volume24hUSD,
		&c.FullyDilutedValue,
		&links,
		&c.FetchedAt,
		&c.FirstSeenAt,
	)
	if err != nil {
		return nil, err
	}

	c.Source = domain.Source(sourceStr)
	if displayName != nil {
		c.DisplayName = *displayName
	}
	if chainID != nil {
		c.ChainID = *chainID
	}
	if tokenAddress != nil {
		c.TokenAddress = *tokenAddress
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &c.Links); err != nil {
			return nil, fmt.Errorf("unmarshal links: %w", err)
		}
	}
	return &c, nil
}

// scanCandidates scans multiple rows into a slice of TokenCandidate.
func scanCandidates(rows pgx.Rows) ([]*domain.TokenCandidate, error) {
	var candidates []*domain.TokenCandidate

	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func linksOrEmpty(links map[string]string) map[string]string {
	if links == nil {
		return map[string]string{}
	}
	return links
}
