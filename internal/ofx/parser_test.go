package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spent/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012801
<NAME>PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name            string
		ofxData         string
		expectedCount   int
		expectedSkipped int
		expectedError   bool
	}{
		{
			name:            "valid bank statement",
			ofxData:         sampleBankOFX,
			expectedCount:   3,
			expectedSkipped: 1,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(model.CurrencyEUR)
			reader := strings.NewReader(tt.ofxData)

			stmt, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, stmt.Expenses, tt.expectedCount)
				assert.Equal(t, tt.expectedSkipped, stmt.Skipped)
			}
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser(model.CurrencyHRK)

	stmt, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Expenses, 3)
	assert.Equal(t, []string{"1234567890"}, stmt.Accounts)

	e1 := stmt.Expenses[0]
	assert.Equal(t, ExpenseID("1234567890", "2024011501"), e1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", e1.Title)
	assert.Equal(t, "25.50", e1.Amount.StringFixed(2))
	assert.Equal(t, model.CurrencyEUR, e1.Currency, "statement currency wins when tracked")
	assert.Equal(t, model.CategoryOther, e1.Category)
	assert.Nil(t, e1.DeletionDate)
	assert.Equal(t, 2024, e1.Date.Year())
	assert.Equal(t, time.January, e1.Date.Month())
	assert.Equal(t, 15, e1.Date.Day())

	e2 := stmt.Expenses[1]
	assert.Equal(t, "Whole Foods Market", e2.Title)
	assert.Equal(t, "125.00", e2.Amount.StringFixed(2))

	e3 := stmt.Expenses[2]
	assert.Equal(t, "CHECK #1234", e3.Title)
	assert.True(t, e3.Amount.Equal(decimal.NewFromInt(500)))
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser(model.CurrencyHRK)

	stmt, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Expenses, 2)
	assert.Equal(t, []string{"4111111111111111"}, stmt.Accounts)

	e1 := stmt.Expenses[0]
	assert.Equal(t, ExpenseID("4111111111111111", "CC2024011001"), e1.ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", e1.Title)
	assert.Equal(t, "45.99", e1.Amount.StringFixed(2))
	assert.Equal(t, model.CurrencyHRK, e1.Currency, "untracked statement currency falls back to the default")

	e2 := stmt.Expenses[1]
	assert.Equal(t, "NETFLIX.COM", e2.Title)
	assert.Equal(t, "15.00", e2.Amount.StringFixed(2))
}

func TestParseFile_ReimportKeepsIDs(t *testing.T) {
	parser := NewParser(model.CurrencyEUR)

	first, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	second, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	require.Len(t, second.Expenses, len(first.Expenses))
	for i := range first.Expenses {
		assert.Equal(t, first.Expenses[i].ID, second.Expenses[i].ID)
	}
}

func TestParseFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser(model.CurrencyEUR).ParseFile(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpenseID(t *testing.T) {
	id := ExpenseID("acct", "FIT1")
	assert.Equal(t, id, ExpenseID("acct", "FIT1"))
	assert.NotEqual(t, id, ExpenseID("acct", "FIT2"))
	assert.NotEqual(t, id, ExpenseID("other", "FIT1"))
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser(model.CurrencyEUR)

	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{
			name:     "remove POS prefix",
			tx:       ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"},
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			tx:       ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"},
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			tx:       ofxgo.Transaction{Name: "NETFLIX.COM"},
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			tx:       ofxgo.Transaction{Name: "  AMAZON.COM  "},
			expected: "AMAZON.COM",
		},
		{
			name:     "strip leading date",
			tx:       ofxgo.Transaction{Name: "03/14 BAKERY"},
			expected: "BAKERY",
		},
		{
			name:     "memo replaces generic name",
			tx:       ofxgo.Transaction{Name: "PURCHASE", Memo: "Corner Bakery"},
			expected: "Corner Bakery",
		},
		{
			name:     "payee wins",
			tx:       ofxgo.Transaction{Name: "DEBIT", Payee: &ofxgo.Payee{Name: "City Parking"}},
			expected: "City Parking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.extractMerchantName(tt.tx))
		})
	}
}
