package export

import (
	"math"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff/enrich"
	"github.com/carbocation/rnadiff/results"
	"github.com/carbocation/rnadiff/table"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"
)

const schema = `
CREATE TABLE IF NOT EXISTS de_results (
	contrast TEXT NOT NULL,
	gene_id TEXT NOT NULL,
	symbol TEXT,
	base_mean REAL,
	log2_fold_change REAL,
	lfc_se REAL,
	stat REAL,
	pvalue REAL,
	padj REAL,
	significant INTEGER NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (contrast, gene_id)
);
CREATE TABLE IF NOT EXISTS enrichment_results (
	contrast TEXT NOT NULL,
	mode TEXT NOT NULL,
	simplified INTEGER NOT NULL,
	term_id TEXT NOT NULL,
	description TEXT,
	set_size INTEGER,
	enrichment_score REAL,
	nes REAL,
	gene_ratio TEXT,
	bg_ratio TEXT,
	pvalue REAL,
	padjust REAL,
	genes TEXT,
	PRIMARY KEY (contrast, mode, simplified, term_id)
);
CREATE TABLE IF NOT EXISTS enrichment_edges (
	contrast TEXT NOT NULL,
	mode TEXT NOT NULL,
	term_id TEXT NOT NULL,
	description TEXT,
	gene TEXT NOT NULL
);
`

// DB is a SQLite database receiving result tables. Writing a contrast
// replaces whatever that contrast had before.
type DB struct {
	db *sqlx.DB
}

type deRecord struct {
	Contrast       string     `db:"contrast"`
	GeneID         string     `db:"gene_id"`
	Symbol         string     `db:"symbol"`
	BaseMean       null.Float `db:"base_mean"`
	Log2FoldChange null.Float `db:"log2_fold_change"`
	LfcSE          null.Float `db:"lfc_se"`
	Stat           null.Float `db:"stat"`
	PValue         null.Float `db:"pvalue"`
	PAdj           null.Float `db:"padj"`
	Significant    bool       `db:"significant"`
	Status         string     `db:"status"`
}

type enrichmentRecord struct {
	Contrast        string     `db:"contrast"`
	Mode            string     `db:"mode"`
	Simplified      bool       `db:"simplified"`
	TermID          string     `db:"term_id"`
	Description     string     `db:"description"`
	SetSize         int        `db:"set_size"`
	EnrichmentScore null.Float `db:"enrichment_score"`
	NES             null.Float `db:"nes"`
	GeneRatio       string     `db:"gene_ratio"`
	BgRatio         string     `db:"bg_ratio"`
	PValue          null.Float `db:"pvalue"`
	PAdjust         null.Float `db:"padjust"`
	Genes           string     `db:"genes"`
}

type edgeRecord struct {
	Contrast    string `db:"contrast"`
	Mode        string `db:"mode"`
	TermID      string `db:"term_id"`
	Description string `db:"description"`
	Gene        string `db:"gene"`
}

func nullFloat(f table.Float) null.Float {
	return null.NewFloat(float64(f), !math.IsNaN(float64(f)))
}

func newDB(db *sqlx.DB) (*DB, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// WriteDE stores the full result table of one contrast.
func (d *DB) WriteDE(contrast string, rows []*results.Row) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM de_results WHERE contrast = ?`, contrast); err != nil {
		return pfx.Err(err)
	}

	for _, r := range rows {
		rec := deRecord{
			Contrast:       contrast,
			GeneID:         r.GeneID,
			Symbol:         r.Symbol,
			BaseMean:       nullFloat(r.BaseMean),
			Log2FoldChange: nullFloat(r.Log2FoldChange),
			LfcSE:          nullFloat(r.LfcSE),
			Stat:           nullFloat(r.Stat),
			PValue:         nullFloat(r.PValue),
			PAdj:           nullFloat(r.PAdj),
			Significant:    r.Significant,
			Status:         string(r.Status),
		}
		if _, err := tx.NamedExec(`INSERT INTO de_results
			(contrast, gene_id, symbol, base_mean, log2_fold_change, lfc_se, stat, pvalue, padj, significant, status)
			VALUES (:contrast, :gene_id, :symbol, :base_mean, :log2_fold_change, :lfc_se, :stat, :pvalue, :padj, :significant, :status)`, rec); err != nil {
			return pfx.Err(err)
		}
	}

	return pfx.Err(tx.Commit())
}

// WriteEnrichment stores one enrichment table, raw or simplified.
func (d *DB) WriteEnrichment(contrast, mode string, simplified bool, rs []*enrich.Result) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM enrichment_results WHERE contrast = ? AND mode = ? AND simplified = ?`, contrast, mode, simplified); err != nil {
		return pfx.Err(err)
	}

	for _, r := range rs {
		rec := enrichmentRecord{
			Contrast:        contrast,
			Mode:            mode,
			Simplified:      simplified,
			TermID:          r.ID,
			Description:     r.Description,
			SetSize:         r.SetSize,
			EnrichmentScore: nullFloat(r.EnrichmentScore),
			NES:             nullFloat(r.NES),
			GeneRatio:       r.GeneRatio,
			BgRatio:         r.BgRatio,
			PValue:          nullFloat(r.PValue),
			PAdjust:         nullFloat(r.PAdjust),
			Genes:           r.Genes,
		}
		if _, err := tx.NamedExec(`INSERT INTO enrichment_results
			(contrast, mode, simplified, term_id, description, set_size, enrichment_score, nes, gene_ratio, bg_ratio, pvalue, padjust, genes)
			VALUES (:contrast, :mode, :simplified, :term_id, :description, :set_size, :enrichment_score, :nes, :gene_ratio, :bg_ratio, :pvalue, :padjust, :genes)`, rec); err != nil {
			return pfx.Err(err)
		}
	}

	return pfx.Err(tx.Commit())
}

// WriteEdges stores the (term, gene) edge table of one enrichment.
func (d *DB) WriteEdges(contrast, mode string, es []*enrich.Edge) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM enrichment_edges WHERE contrast = ? AND mode = ?`, contrast, mode); err != nil {
		return pfx.Err(err)
	}

	for _, e := range es {
		rec := edgeRecord{Contrast: contrast, Mode: mode, TermID: e.ID, Description: e.Description, Gene: e.Gene}
		if _, err := tx.NamedExec(`INSERT INTO enrichment_edges (contrast, mode, term_id, description, gene)
			VALUES (:contrast, :mode, :term_id, :description, :gene)`, rec); err != nil {
			return pfx.Err(err)
		}
	}

	return pfx.Err(tx.Commit())
}
