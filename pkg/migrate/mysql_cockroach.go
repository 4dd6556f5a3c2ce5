package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/baderkha/dv-transfer/pkg/migrate/config"
	"github.com/baderkha/dv-transfer/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/dv-transfer/pkg/migrate/config/targetcfg"
	"github.com/baderkha/dv-transfer/pkg/migrate/connection"
	"github.com/baderkha/dv-transfer/pkg/migrate/report"
	"github.com/baderkha/dv-transfer/pkg/migrate/state"
	"github.com/baderkha/dv-transfer/pkg/migrate/table"
	"github.com/baderkha/dv-transfer/pkg/migrate/table/colmap"
)

var _ Runner = (*MysqlToCockroach)(nil)

type Option func(m *MysqlToCockroach)

func WithLogger(log zerolog.Logger) Option {
	return func(m *MysqlToCockroach) { m.log = log }
}

func WithFs(fs afero.Fs) Option {
	return func(m *MysqlToCockroach) { m.fs = fs }
}

func WithS3(api s3iface.S3API) Option {
	return func(m *MysqlToCockroach) { m.targetFs = api }
}

// MysqlToCockroach : migrates the vault tables from the legacy mysql database into cockroachdb
type MysqlToCockroach struct {
	source       *sql.DB
	target       *sql.DB
	infoFetcher  table.InfoFetcher
	targetFs     s3iface.S3API
	cfg          config.Config[sourcecfg.MYSQL, targetcfg.Cockroach]
	stateManager state.Manager
	runId        string
	log          zerolog.Logger
	fs           afero.Fs
}

func NewMysqlToCockroach(cfg config.Config[sourcecfg.MYSQL, targetcfg.Cockroach], opts ...Option) (*MysqlToCockroach, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &MysqlToCockroach{
		cfg:          cfg,
		runId:        uid.String(),
		stateManager: state.NewMemoryManager(),
		fs:           afero.NewOsFs(),
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("run_id", m.runId).Logger()
	if m.targetFs == nil && cfg.Report.S3.Bucket != "" {
		sess, err := session.NewSession(aws.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("REPORT : could not create aws session : %w", err)
		}
		m.targetFs = s3.New(sess)
	}
	return m, nil
}

func (m *MysqlToCockroach) GetStateManager() state.Manager {
	return m.stateManager
}

func (m *MysqlToCockroach) RunID() string {
	return m.runId
}

func (m *MysqlToCockroach) Init(ctx context.Context) error {
	source, target, err := connection.DialAll(ctx, &m.cfg.SourceConfig, &m.cfg.Target, m.log)
	if err != nil {
		return fmt.Errorf("%w : %w", ErrConnection, err)
	}
	m.source = source
	m.target = target
	m.infoFetcher = table.NewInfoFetcherMysql(m.source)
	return nil
}

func (m *MysqlToCockroach) Run(ctx context.Context) (*Summary, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	defer m.CleanUp()

	tasks, err := GenerateTargetCast(ctx, m.infoFetcher, m.cfg.SourceConfig.DB, VaultTasks(m.cfg.BatchRecordSize))
	if err != nil {
		return nil, err
	}

	orch := NewOrchestrator(
		m.runId,
		m.cfg.SourceConfig.DB,
		NewMysqlSource(m.source),
		NewCockroachDestination(m.target, m.cfg.CommitMode == config.CommitPerChunk),
		tasks,
		m.cfg.CommitMode,
		m.stateManager,
		m.log,
	)
	summary, runErr := orch.Run(ctx)
	if pubErr := m.PublishReport(summary); pubErr != nil {
		m.log.Error().Err(pubErr).Msg("could not publish reconciliation report")
	}
	return summary, runErr
}

// PublishReport : renders the summary and hands it to the report publisher
func (m *MysqlToCockroach) PublishReport(summary *Summary) error {
	if summary == nil {
		return nil
	}
	var buf bytes.Buffer
	RenderSummary(&buf, summary)
	pub := report.NewPublisher(m.fs, m.cfg.Report.Dir, m.targetFs, m.cfg.Report.S3.Bucket, m.cfg.Report.S3.PrefixOverride, m.cfg.Report.S3.MaxRetry)
	path, err := pub.Publish(m.runId, buf.Bytes())
	if err != nil {
		return err
	}
	m.log.Info().Str("path", path).Msg("reconciliation report written")
	return nil
}

// RenderSummary : run status, per table counts with the run log outcome of
// every table, then the reconciliation table
func RenderSummary(w io.Writer, summary *Summary) {
	tables := make([]report.TableRow, 0, len(summary.TableLogs))
	reports := make(map[string]*TableReport, len(summary.Tables))
	for _, t := range summary.Tables {
		reports[t.Source] = t
	}
	for _, l := range summary.TableLogs {
		row := report.TableRow{
			Table:    l.TableName,
			Status:   string(l.Status),
			Inserted: l.RowWritten,
			Skipped:  l.RowSkipped,
			Failed:   l.RowFailed,
			Error:    l.ErrMsg,
		}
		if t, ok := reports[l.TableName]; ok {
			row.Table = t.Task
			row.Chunks = len(t.Chunks)
			row.Inserted, row.Skipped, row.Failed = t.Inserted, t.Skipped, t.Failed
			delete(reports, l.TableName)
		}
		tables = append(tables, row)
	}
	for _, t := range summary.Tables {
		if _, ok := reports[t.Source]; !ok {
			continue
		}
		tables = append(tables, report.TableRow{
			Table:    t.Task,
			Chunks:   len(t.Chunks),
			Inserted: t.Inserted,
			Skipped:  t.Skipped,
			Failed:   t.Failed,
		})
	}
	recon := make([]report.ReconciliationRow, 0, len(summary.Reconciliation))
	for _, r := range summary.Reconciliation {
		recon = append(recon, report.ReconciliationRow{
			Source:      r.Pair.Source,
			Destination: r.Pair.Destination,
			SourceCount: r.SourceCount,
			DestCount:   r.DestCount,
			Status:      report.Status(r.Match),
		})
	}
	var status string
	if summary.Run != nil {
		status = string(summary.Run.Status)
		if summary.Run.ErrMsg != "" {
			status += " (" + summary.Run.ErrMsg + ")"
		}
	}
	report.Render(w, summary.RunID, status, tables, recon)
}

// GenerateTargetCast : checks every mapped column exists in the source and can
// be cast to cockroach. Temporal columns get the zero date rule. All problems
// are collected before failing.
func GenerateTargetCast(ctx context.Context, fetcher table.InfoFetcher, dbName string, tasks []MigrationTask) ([]MigrationTask, error) {
	names := make([]string, len(tasks))
	for i := range tasks {
		names[i] = tasks[i].Source
	}
	infos, err := fetcher.Tables(ctx, dbName, names...)
	if err != nil {
		return nil, fmt.Errorf("%w : %w", ErrConnection, err)
	}

	var (
		finalErr error
		res      = make([]MigrationTask, len(tasks))
	)
	for i, task := range tasks {
		task.Fields = append([]FieldMapping(nil), task.Fields...)
		for j, f := range task.Fields {
			col, ok := infos[i].Column(f.Source)
			if !ok {
				finalErr = multierror.Append(finalErr, fmt.Errorf("Cast Error : %s.%s has no column %s", dbName, task.Source, f.Source))
				continue
			}
			convertedField, err := colmap.Convert(colmap.MysqlToCockroach, col.Type)
			if err != nil {
				finalErr = multierror.Append(finalErr, fmt.Errorf("Cast Error : Bad Casting for %s.%s for column %s due to : %w", dbName, task.Source, col.ColumnName, err))
				continue
			}
			if colmap.IsTemporal(convertedField) && f.Rule == RuleNone {
				task.Fields[j].Rule = RuleZeroDate
			}
		}
		res[i] = task
	}
	if finalErr != nil {
		return nil, finalErr
	}
	return res, nil
}

func (m *MysqlToCockroach) CleanUp() {
	if m.source != nil {
		m.source.Close()
	}
	if m.target != nil {
		m.target.Close()
	}
}
