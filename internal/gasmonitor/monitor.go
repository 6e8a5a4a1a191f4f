// File: internal/gasmonitor/monitor.go
package gasmonitor

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

const erc20ABI = `[{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

var tokenABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(err)
	}
	tokenABI = parsed
}

// BalanceReader is the chain surface the monitor needs
type BalanceReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// PartnerConfig describes one reward-disbursing partner wallet
type PartnerConfig struct {
	Name          string `json:"name" mapstructure:"name"`
	PrivateKey    string `json:"private_key" mapstructure:"private_key"`
	TokenContract string `json:"token_contract" mapstructure:"token_contract"`
	TokenDecimals uint   `json:"token_decimals" mapstructure:"token_decimals"`
}

// Alert reports one partner wallet whose balance cannot cover this week's
// obligations
type Alert struct {
	Partner   string `json:"partner"`
	Wallet    string `json:"wallet"`
	Week      string `json:"week"`
	Required  int64  `json:"required"`
	Balance   int64  `json:"balance"`
	Shortfall int64  `json:"shortfall"`
}

// AlertSender delivers a shortfall alert to an outbound channel
type AlertSender interface {
	SendBalanceAlert(ctx context.Context, alert *Alert) error
}

// Report summarises one balance-check run
type Report struct {
	PartnersChecked int      `json:"partners_checked"`
	PartnersSkipped int      `json:"partners_skipped"`
	Alerts          []*Alert `json:"alerts"`
}

// Monitor compares partner wallet balances against upcoming payout obligations
type Monitor struct {
	reader   BalanceReader
	storage  storage.Storage
	sender   AlertSender
	partners []PartnerConfig
	logger   *logrus.Logger
	metrics  *metrics.PrometheusMetrics
}

// NewMonitor creates a gas/balance monitor
func NewMonitor(reader BalanceReader, store storage.Storage, sender AlertSender, partners []PartnerConfig) *Monitor {
	return &Monitor{
		reader:   reader,
		storage:  store,
		sender:   sender,
		partners: partners,
		logger:   utils.GetLogger(),
	}
}

// SetMetrics attaches a metrics recorder for shortfall gauges and alerts
func (m *Monitor) SetMetrics(pm *metrics.PrometheusMetrics) {
	m.metrics = pm
}

// CheckBalances computes each partner's required payout for the week from its
// reward sources, reads the wallet's token balance, and sends exactly one
// alert per underfunded wallet. Misconfigured partners are warned about and
// skipped; an RPC failure reading a balance falls back to zero so the alert
// still fires rather than the run crashing.
func (m *Monitor) CheckBalances(ctx context.Context, week string) (*Report, error) {
	report := &Report{}

	for _, partner := range m.partners {
		if partner.PrivateKey == "" || partner.TokenContract == "" {
			m.logger.WithField("partner", partner.Name).Warn("Partner wallet not fully configured, skipping balance check")
			report.PartnersSkipped++
			continue
		}

		wallet, err := utils.AddressFromPrivateKey(partner.PrivateKey)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"partner": partner.Name,
				"error":   err,
			}).Warn("Invalid partner private key, skipping balance check")
			report.PartnersSkipped++
			continue
		}

		required, err := m.requiredPayout(ctx, partner.Name, week)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"partner": partner.Name,
				"week":    week,
				"error":   err,
			}).Error("Failed to compute partner obligations")
			report.PartnersSkipped++
			continue
		}

		balance := m.tokenBalance(ctx, partner, wallet)
		report.PartnersChecked++

		if balance >= required {
			if m.metrics != nil {
				m.metrics.ClearBalanceAlert(partner.Name)
			}
			continue
		}

		alert := &Alert{
			Partner:   partner.Name,
			Wallet:    wallet.Hex(),
			Week:      week,
			Required:  required,
			Balance:   balance,
			Shortfall: required - balance,
		}
		report.Alerts = append(report.Alerts, alert)

		m.logger.WithFields(logrus.Fields{
			"partner":   partner.Name,
			"wallet":    alert.Wallet,
			"required":  required,
			"balance":   balance,
			"shortfall": alert.Shortfall,
		}).Warn("Partner wallet underfunded for weekly payout")

		if m.metrics != nil {
			m.metrics.RecordBalanceAlert(partner.Name, alert.Shortfall)
		}

		if m.sender != nil {
			if err := m.sender.SendBalanceAlert(ctx, alert); err != nil {
				m.logger.WithFields(logrus.Fields{
					"partner": partner.Name,
					"error":   err,
				}).Error("Failed to send balance alert")
			}
		}
	}

	return report, nil
}

// requiredPayout sums the week's obligations across all reward sources
func (m *Monitor) requiredPayout(ctx context.Context, partner, week string) (int64, error) {
	sums, err := m.storage.SumPartnerRewards(ctx, partner, week)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, amount := range sums {
		total += amount
	}
	return total, nil
}

// tokenBalance reads the partner's ERC-20 token balance in whole tokens.
// Any RPC or decoding failure yields zero, the conservative side for an
// underfunding check.
func (m *Monitor) tokenBalance(ctx context.Context, partner PartnerConfig, wallet common.Address) int64 {
	contract := common.HexToAddress(partner.TokenContract)

	input, err := tokenABI.Pack("balanceOf", wallet)
	if err != nil {
		m.logger.WithField("partner", partner.Name).WithError(err).Warn("Failed to pack balance call, assuming zero")
		return 0
	}

	output, err := m.reader.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, nil)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"partner": partner.Name,
			"wallet":  wallet.Hex(),
			"error":   err,
		}).Warn("Balance read failed, assuming zero")
		return 0
	}

	results, err := tokenABI.Unpack("balanceOf", output)
	if err != nil || len(results) == 0 {
		m.logger.WithField("partner", partner.Name).Warn("Failed to decode balance, assuming zero")
		return 0
	}
	raw, ok := results[0].(*big.Int)
	if !ok {
		return 0
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(partner.TokenDecimals)), nil)
	return new(big.Int).Div(raw, divisor).Int64()
}
