// Package provisioning wraps the Hysteria2 management CLI behind typed calls.
package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"hysteriabot/m/v2/app/models"

	log "github.com/sirupsen/logrus"
)

type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

type URIOptions struct {
	Singbox   bool
	NormalSub bool
}

// Receipt confirms an account was created.
type Receipt struct {
	Name         string
	QuotaGB      int
	DurationDays int
	Output       string
}

type Connection struct {
	URI            string
	SingboxSublink string
	NormalSublink  string
}

// AccountPatch lists the edits for one edit-user call. Nil fields are left
// unchanged.
type AccountPatch struct {
	NewName           string
	NewQuotaGB        *int
	NewExpirationDays *int
	Blocked           *bool
	RenewPassword     bool
	RenewCreationDate bool
}

type Gateway struct {
	runner    Runner
	backupDir string
}

func NewGateway(runner Runner, backupDir string) *Gateway {
	return &Gateway{runner: runner, backupDir: backupDir}
}

// run executes a command and classifies failures. Output of a successful run
// is returned as is.
func (g *Gateway) run(ctx context.Context, op string, args ...string) (string, error) {
	output, err := g.runner.Run(ctx, args...)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return "", classify(op, output, err)
		}
		return "", &Error{Kind: ErrTransient, Op: op, Output: output, Err: err}
	}
	if looksLikeFailure(output) {
		return "", classify(op, output, nil)
	}
	return output, nil
}

func (g *Gateway) CreateAccount(ctx context.Context, name string, quotaGB, durationDays int) (*Receipt, error) {
	output, err := g.run(ctx, "CreateAccount",
		"add-user", "-u", name, "-t", strconv.Itoa(quotaGB), "-e", strconv.Itoa(durationDays))
	if err != nil {
		return nil, err
	}
	return &Receipt{Name: name, QuotaGB: quotaGB, DurationDays: durationDays, Output: output}, nil
}

func (g *Gateway) GetAccount(ctx context.Context, name string) (*models.AccountDetails, error) {
	output, err := g.run(ctx, "GetAccount", "get-user", "-u", name)
	if err != nil {
		return nil, err
	}
	details, err := parseAccountDetails(output)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Op: "GetAccount", Output: output, Err: err}
	}
	return details, nil
}

func (g *Gateway) ListAccounts(ctx context.Context) (map[string]models.AccountDetails, error) {
	output, err := g.run(ctx, "ListAccounts", "list-users")
	if err != nil {
		return nil, err
	}
	if output == "" {
		return map[string]models.AccountDetails{}, nil
	}
	accounts := map[string]models.AccountDetails{}
	if err := json.Unmarshal([]byte(output), &accounts); err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Op: "ListAccounts", Output: output, Err: err}
	}
	return accounts, nil
}

// FindAccount resolves a name case-insensitively against the account list
// and returns the name as stored by the tool.
func (g *Gateway) FindAccount(ctx context.Context, name string) (string, error) {
	accounts, err := g.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	for stored := range accounts {
		if strings.EqualFold(stored, strings.TrimSpace(name)) {
			return stored, nil
		}
	}
	return "", &Error{Kind: ErrNotFound, Op: "FindAccount", Output: fmt.Sprintf("Username '%s' does not exist.", name)}
}

func (g *Gateway) EditAccount(ctx context.Context, name string, patch AccountPatch) (string, error) {
	args := []string{"edit-user", "-u", name}
	if patch.NewName != "" {
		args = append(args, "-nu", patch.NewName)
	}
	if patch.NewQuotaGB != nil {
		args = append(args, "-nt", strconv.Itoa(*patch.NewQuotaGB))
	}
	if patch.NewExpirationDays != nil {
		args = append(args, "-ne", strconv.Itoa(*patch.NewExpirationDays))
	}
	if patch.RenewPassword {
		args = append(args, "-rp")
	}
	if patch.RenewCreationDate {
		args = append(args, "-rc")
	}
	if patch.Blocked != nil && *patch.Blocked {
		args = append(args, "-b")
	}
	return g.run(ctx, "EditAccount", args...)
}

// ResetAccount clears traffic counters and restarts the expiration period.
func (g *Gateway) ResetAccount(ctx context.Context, name string) (string, error) {
	return g.run(ctx, "ResetAccount", "reset-user", "-u", name)
}

func (g *Gateway) RemoveAccount(ctx context.Context, name string) (string, error) {
	return g.run(ctx, "RemoveAccount", "remove-user", "-u", name)
}

func (g *Gateway) GetConnection(ctx context.Context, name string, ip IPVersion, opts URIOptions) (*Connection, error) {
	args := []string{"show-user-uri", "-u", name, "-ip", strconv.Itoa(int(ip))}
	if opts.Singbox {
		args = append(args, "-s")
	}
	if opts.NormalSub {
		args = append(args, "-n")
	}
	output, err := g.run(ctx, "GetConnection", args...)
	if err != nil {
		return nil, err
	}
	conn, err := parseConnection(output)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Op: "GetConnection", Output: output, Err: err}
	}
	return conn, nil
}

func (g *Gateway) GetConnectionURI(ctx context.Context, name string, ip IPVersion, opts URIOptions) (string, error) {
	conn, err := g.GetConnection(ctx, name, ip, opts)
	if err != nil {
		return "", err
	}
	return conn.URI, nil
}

func (g *Gateway) ServerInfo(ctx context.Context) (string, error) {
	return g.run(ctx, "ServerInfo", "server-info")
}

// Backup runs the backup command and returns the newest archive in the
// backup directory.
func (g *Gateway) Backup(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "Backup", "backup-hysteria")
	if err != nil {
		return "", err
	}
	log.Infof("Backup: %s", output)
	return latestArchive(g.backupDir)
}

func latestArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("latestArchive: %w", err)
	}
	type archive struct {
		path    string
		modTime int64
	}
	archives := []archive{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, archive{path: filepath.Join(dir, e.Name()), modTime: info.ModTime().UnixNano()})
	}
	if len(archives) == 0 {
		return "", fmt.Errorf("latestArchive: no backup file found in %s", dir)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].modTime > archives[j].modTime })
	return archives[0].path, nil
}
