package dto

import (
	"strconv"
)

// ProviderAction is one reported action inside a roundinfo request
type ProviderAction struct {
	ActionID  string `json:"actionid" form:"actionid"`
	Kind      string `json:"kind" form:"kind"`
	Amount    string `json:"amount" form:"amount"`
	Timestamp int64  `json:"timestamp" form:"timestamp"`
}

// ProviderSelection is one rollback target inside a rollback request
type ProviderSelection struct {
	BetID     string `json:"bet_id" form:"bet_id"`
	BetslipID string `json:"betslip_id" form:"betslip_id"`
	Status    string `json:"status" form:"status"`
}

// ProviderRequest is the common provider envelope. The type field selects the
// operation; the remaining fields are type-specific and arrive empty when
// unused.
type ProviderRequest struct {
	Type        string              `json:"type" form:"type"`
	HMAC        string              `json:"hmac" form:"hmac"`
	TID         string              `json:"tid" form:"tid"`
	UserID      string              `json:"userid" form:"userid"`
	Currency    string              `json:"currency" form:"currency"`
	Amount      string              `json:"amount" form:"amount"`
	Subtype     string              `json:"subtype" form:"subtype"`
	GameID      string              `json:"i_gameid" form:"i_gameid"`
	ExtParam    string              `json:"i_extparam" form:"i_extparam"`
	GameDesc    string              `json:"i_gamedesc" form:"i_gamedesc"`
	ActionID    string              `json:"i_actionid" form:"i_actionid"`
	RollbackRef string              `json:"i_rollback" form:"i_rollback"`
	BonusID     string              `json:"bonus_id" form:"bonus_id"`
	JackpotWin  string              `json:"jackpot_win" form:"jackpot_win"`
	Flag        string              `json:"i_flag" form:"i_flag"`
	RoundStart  string              `json:"round_start" form:"round_start"`
	RoundEnded  string              `json:"round_ended" form:"round_ended"`
	GameRoundID string              `json:"gameid" form:"gameid"`
	Actions     []ProviderAction    `json:"actions" form:"-"`
	Selections  []ProviderSelection `json:"selections" form:"-"`
}

// SignatureFields returns the scalar request fields the authenticity tag is
// computed over. Empty fields are omitted from the canonical form.
func (r *ProviderRequest) SignatureFields() map[string]string {
	fields := map[string]string{
		"type":        r.Type,
		"tid":         r.TID,
		"userid":      r.UserID,
		"currency":    r.Currency,
		"amount":      r.Amount,
		"subtype":     r.Subtype,
		"i_gameid":    r.GameID,
		"i_extparam":  r.ExtParam,
		"i_gamedesc":  r.GameDesc,
		"i_actionid":  r.ActionID,
		"i_rollback":  r.RollbackRef,
		"bonus_id":    r.BonusID,
		"jackpot_win": r.JackpotWin,
		"i_flag":      r.Flag,
		"round_start": r.RoundStart,
		"round_ended": r.RoundEnded,
		"gameid":      r.GameRoundID,
	}
	for key, value := range fields {
		if value == "" {
			delete(fields, key)
		}
	}
	return fields
}

// UserIDValue parses the provider's string user id
func (r *ProviderRequest) UserIDValue() (uint64, error) {
	return strconv.ParseUint(r.UserID, 10, 64)
}

// ProviderResponse is the common response envelope. The hmac field carries
// the authenticity tag over the response fields.
type ProviderResponse struct {
	Status  string `json:"status"`
	HMAC    string `json:"hmac"`
	TID     string `json:"tid,omitempty"`
	Balance string `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SignatureFields returns the response fields the authenticity tag is
// computed over
func (r *ProviderResponse) SignatureFields() map[string]string {
	fields := map[string]string{
		"status":  r.Status,
		"tid":     r.TID,
		"balance": r.Balance,
		"error":   r.Error,
	}
	if r.Code != 0 {
		fields["code"] = strconv.Itoa(r.Code)
	}
	for key, value := range fields {
		if value == "" {
			delete(fields, key)
		}
	}
	return fields
}
