// Package ofx turns OFX/QFX bank and credit card statements into expenses.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/spent/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Statement is the result of parsing one file.
type Statement struct {
	Expenses []model.Expense
	Accounts []string
	// Skipped counts credits and zero-amount entries, which are not expenses.
	Skipped int
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	defaultCurrency model.Currency
}

// NewParser creates a new OFX parser. Statements in a currency the application
// does not track are imported in defaultCurrency.
func NewParser(defaultCurrency model.Currency) *Parser {
	return &Parser{defaultCurrency: defaultCurrency}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare opening tag
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its debits as expenses.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}
	accounts := make(map[string]bool)
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			accountID := string(s.BankAcctFrom.AcctID)
			accounts[accountID] = true
			p.collect(stmt, s.BankTranList, accountID, s.CurDef.String())
		}
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			accountID := string(s.CCAcctFrom.AcctID)
			accounts[accountID] = true
			p.collect(stmt, s.BankTranList, accountID, s.CurDef.String())
		}
	}

	for acct := range accounts {
		if acct != "" {
			stmt.Accounts = append(stmt.Accounts, acct)
		}
	}
	sort.Strings(stmt.Accounts)

	slog.Info("Parsed OFX file",
		"expenses", len(stmt.Expenses),
		"skipped", stmt.Skipped,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmt, nil
}

func (p *Parser) collect(stmt *Statement, list *ofxgo.TransactionList, accountID, curDef string) {
	if list == nil {
		return
	}

	currency := p.currency(curDef)
	for _, ofxTx := range list.Transactions {
		e, ok := p.convertTransaction(ofxTx, accountID, currency)
		if !ok {
			stmt.Skipped++
			continue
		}
		stmt.Expenses = append(stmt.Expenses, e)
	}
}

func (p *Parser) currency(curDef string) model.Currency {
	if c, err := model.ParseCurrency(curDef); err == nil {
		return c
	}
	if curDef != "" {
		slog.Debug("Statement currency not tracked, using default",
			"currency", curDef,
			"default", p.defaultCurrency)
	}
	return p.defaultCurrency
}

// convertTransaction converts an OFX debit into an expense. Credits and
// zero amounts are reported as not ok.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string, currency model.Currency) (model.Expense, bool) {
	// OFX uses negative amounts for debits
	if ofxTx.TrnAmt.Sign() >= 0 {
		return model.Expense{}, false
	}

	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		slog.Warn("Skipping transaction with unreadable amount",
			"fitid", ofxTx.FiTID,
			"error", err)
		return model.Expense{}, false
	}

	return model.Expense{
		ID:       ExpenseID(accountID, string(ofxTx.FiTID)),
		Title:    p.extractMerchantName(ofxTx),
		Amount:   amount.Abs(),
		Currency: currency,
		Category: model.DefaultCategory,
		Date:     ofxTx.DtPosted.Time,
	}, true
}

// ExpenseID derives a stable expense id from an account and an OFX FITID so
// re-importing a statement replaces rows instead of duplicating them.
func ExpenseID(accountID, fitID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(accountID+"/"+fitID)).String()
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)

	// MEMO often has better merchant info than a generic NAME
	if tx.Memo != "" && (name == "" || isGenericDescription(name)) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " date
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
