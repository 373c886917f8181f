package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/incidentline/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id    TEXT PRIMARY KEY,
	title TEXT
);
CREATE TABLE IF NOT EXISTS operation_records (
	id                TEXT PRIMARY KEY,
	create_time       INTEGER NOT NULL,
	operation_type    TEXT,
	operation_class   TEXT,
	related_entity_id TEXT,
	operator          TEXT,
	content           TEXT
);
CREATE TABLE IF NOT EXISTS aggregation_nodes (
	id               TEXT PRIMARY KEY,
	parent_id        TEXT,
	position         INTEGER NOT NULL DEFAULT 0,
	title            TEXT,
	level_name       TEXT,
	begin_time       INTEGER NOT NULL,
	end_time         INTEGER,
	status           TEXT,
	is_root          INTEGER NOT NULL DEFAULT 0,
	is_feedback_root INTEGER NOT NULL DEFAULT 0,
	is_open          INTEGER NOT NULL DEFAULT 0,
	entity_id        TEXT
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON aggregation_nodes(parent_id, position);
`

// SQLiteReader provides read access to an incident SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// nodeRow is an aggregation node with its storage-only parent link.
type nodeRow struct {
	node     *model.AggregationNode
	parentID string
}

// LoadIncident reads the incident header, its records and its node tree. The
// three tables are queried concurrently.
func (r *SQLiteReader) LoadIncident(ctx context.Context) (*model.Incident, error) {
	inc := &model.Incident{}
	var nodes []nodeRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.loadHeader(gctx, inc)
	})
	g.Go(func() error {
		recs, err := r.loadRecords(gctx)
		inc.Records = recs
		return err
	})
	g.Go(func() error {
		var err error
		nodes, err = r.loadNodes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree, err := buildTree(nodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	inc.Tree = tree
	return inc, nil
}

func (r *SQLiteReader) loadHeader(ctx context.Context, inc *model.Incident) error {
	var title sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, title FROM incidents LIMIT 1`).Scan(&inc.ID, &title)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query incident: %w", err)
	}
	inc.Title = title.String
	return nil
}

func (r *SQLiteReader) loadRecords(ctx context.Context) ([]model.OperationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, create_time, operation_type, operation_class,
		       related_entity_id, operator, content
		FROM operation_records
		ORDER BY create_time, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []model.OperationRecord
	for rows.Next() {
		var rec model.OperationRecord
		var opType, opClass, entity, operator, content sql.NullString
		if err := rows.Scan(&rec.ID, &rec.CreateTime, &opType, &opClass, &entity, &operator, &content); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.OperationType = opType.String
		rec.OperationClass = model.OperationClass(opClass.String)
		rec.RelatedEntityID = entity.String
		rec.Operator = operator.String
		rec.Content = content.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return out, nil
}

func (r *SQLiteReader) loadNodes(ctx context.Context) ([]nodeRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, parent_id, title, level_name, begin_time, end_time, status,
		       is_root, is_feedback_root, is_open, entity_id
		FROM aggregation_nodes
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []nodeRow
	for rows.Next() {
		n := &model.AggregationNode{}
		var parent, title, level, status, entity sql.NullString
		var end sql.NullInt64
		if err := rows.Scan(&n.ID, &parent, &title, &level, &n.BeginTime, &end, &status,
			&n.IsRoot, &n.IsFeedbackRoot, &n.IsOpen, &entity); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Title = title.String
		n.LevelName = level.String
		n.Status = model.Status(status.String)
		n.EntityID = entity.String
		if end.Valid {
			v := end.Int64
			n.EndTime = &v
		}
		out = append(out, nodeRow{node: n, parentID: parent.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return out, nil
}

// buildTree links nodes to their parents, keeping the row order among
// siblings. Every node must be reachable from a top level node.
func buildTree(rows []nodeRow) ([]*model.AggregationNode, error) {
	byID := make(map[string]*model.AggregationNode, len(rows))
	for _, r := range rows {
		byID[r.node.ID] = r.node
	}

	var roots []*model.AggregationNode
	for _, r := range rows {
		if r.parentID == "" {
			roots = append(roots, r.node)
			continue
		}
		parent, ok := byID[r.parentID]
		if !ok {
			return nil, fmt.Errorf("node %s references missing parent %s", r.node.ID, r.parentID)
		}
		parent.Children = append(parent.Children, r.node)
	}

	reached := 0
	model.Walk(roots, func(*model.AggregationNode, int) bool {
		reached++
		return true
	})
	if reached != len(rows) {
		return nil, fmt.Errorf("node tree has a cycle (%d of %d nodes reachable)", reached, len(rows))
	}
	return roots, nil
}

// SaveSQLite writes inc to a SQLite database at path, replacing any incident
// stored there before.
func SaveSQLite(ctx context.Context, path string, inc *model.Incident) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, table := range []string{"incidents", "operation_records", "aggregation_nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO incidents (id, title) VALUES (?, ?)`, inc.ID, inc.Title); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}

	for _, rec := range inc.Records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO operation_records
			(id, create_time, operation_type, operation_class, related_entity_id, operator, content)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.CreateTime, rec.OperationType, string(rec.OperationClass),
			rec.RelatedEntityID, rec.Operator, rec.Content); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	var insert func(nodes []*model.AggregationNode, parent any) error
	insert = func(nodes []*model.AggregationNode, parent any) error {
		for pos, n := range nodes {
			var end any
			if n.EndTime != nil {
				end = *n.EndTime
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO aggregation_nodes
				(id, parent_id, position, title, level_name, begin_time, end_time, status,
				 is_root, is_feedback_root, is_open, entity_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, parent, pos, n.Title, n.LevelName, n.BeginTime, end, string(n.Status),
				n.IsRoot, n.IsFeedbackRoot, n.IsOpen, n.EntityID); err != nil {
				return fmt.Errorf("insert node %s: %w", n.ID, err)
			}
			if err := insert(n.Children, n.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(inc.Tree, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
