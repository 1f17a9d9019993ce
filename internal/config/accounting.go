package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AgingBucket defines one day-overdue range for receivable/payable aging.
// MaxDays == nil means open-ended.
type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"`
}

// FraudPolicy holds thresholds for the red-flag scanner.
// All amounts are integer minor units (cents).
type FraudPolicy struct {
	RoundAmountUnit      int64 `mapstructure:"roundAmountUnit"`
	RoundAmountThreshold int64 `mapstructure:"roundAmountThreshold"`
	LargeAmountThreshold int64 `mapstructure:"largeAmountThreshold"`
	BackdateDays         int   `mapstructure:"backdateDays"`
	DuplicateWindowDays  int   `mapstructure:"duplicateWindowDays"`
}

// AccountingPolicy is the hot-reloadable accounting configuration.
type AccountingPolicy struct {
	AgingBuckets []AgingBucket `mapstructure:"agingBuckets"`
	Fraud        FraudPolicy   `mapstructure:"fraud"`

	// Voucher purposes allowed to move funds across the escrow boundary.
	EscrowAllowedPurposes []string `mapstructure:"escrowAllowedPurposes"`

	// Account codes treated as receivable/payable control accounts for aging.
	ReceivableAccountCodes []string `mapstructure:"receivableAccountCodes"`
	PayableAccountCodes    []string `mapstructure:"payableAccountCodes"`

	// Asset account codes at or above this prefix are reported as fixed assets.
	FixedAssetCodePrefix string `mapstructure:"fixedAssetCodePrefix"`
}

func DefaultAccountingPolicy() AccountingPolicy {
	return AccountingPolicy{
		AgingBuckets: []AgingBucket{
			{Label: "current", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "91+", MinDays: 91, MaxDays: nil},
		},
		Fraud: FraudPolicy{
			RoundAmountUnit:      100_00,
			RoundAmountThreshold: 10_000_00,
			LargeAmountThreshold: 1_000_000_00,
			BackdateDays:         7,
			DuplicateWindowDays:  3,
		},
		EscrowAllowedPurposes: []string{
			"security_deposit_receipt",
			"security_deposit_refund",
		},
		ReceivableAccountCodes: []string{"1201"},
		PayableAccountCodes:    []string{"2101"},
		FixedAssetCodePrefix:   "15",
	}
}

func intPtr(v int) *int { return &v }

// AccountingPolicyHolder exposes the current policy and swaps it atomically on
// config file changes.
type AccountingPolicyHolder struct {
	current atomic.Value // holds AccountingPolicy
}

func NewAccountingPolicyHolder() (*AccountingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("accounting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rems-ledger/config")
	v.AddConfigPath("/etc/rems-ledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAccountingPolicy()
	v.SetDefault("accounting.agingBuckets", defaults.AgingBuckets)
	v.SetDefault("accounting.fraud", defaults.Fraud)
	v.SetDefault("accounting.escrowAllowedPurposes", defaults.EscrowAllowedPurposes)
	v.SetDefault("accounting.receivableAccountCodes", defaults.ReceivableAccountCodes)
	v.SetDefault("accounting.payableAccountCodes", defaults.PayableAccountCodes)
	v.SetDefault("accounting.fixedAssetCodePrefix", defaults.FixedAssetCodePrefix)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy AccountingPolicy
	if err := v.UnmarshalKey("accounting", &policy); err != nil {
		return nil, err
	}
	if err := validateAccountingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &AccountingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AccountingPolicy
		if err := v.UnmarshalKey("accounting", &updated); err != nil {
			log.Printf("[accounting-config] reload failed: %v", err)
			return
		}
		if err := validateAccountingPolicy(updated); err != nil {
			log.Printf("[accounting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[accounting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *AccountingPolicyHolder) Get() AccountingPolicy {
	return h.current.Load().(AccountingPolicy)
}

// NewStaticPolicyHolder wraps a fixed policy, for tests.
func NewStaticPolicyHolder(policy AccountingPolicy) *AccountingPolicyHolder {
	holder := &AccountingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateAccountingPolicy(policy AccountingPolicy) error {
	if len(policy.AgingBuckets) == 0 {
		return errors.New("accounting.agingBuckets cannot be empty")
	}
	for _, b := range policy.AgingBuckets {
		if b.MaxDays != nil && *b.MaxDays < b.MinDays {
			return errors.New("accounting.agingBuckets bucket range is inverted")
		}
	}
	if policy.Fraud.RoundAmountUnit <= 0 {
		return errors.New("accounting.fraud.roundAmountUnit must be positive")
	}
	if policy.Fraud.LargeAmountThreshold <= 0 {
		return errors.New("accounting.fraud.largeAmountThreshold must be positive")
	}
	return nil
}
