package ccd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Energy is the unit used to pay for transaction execution.
type Energy uint64

// Amount is an amount of CCD in micro CCD.
type Amount uint64

// ZeroAmount is the zero CCD amount.
const ZeroAmount Amount = 0

// MarshalJSON encodes the amount as a decimal string since JSON numbers can't
// represent the whole uint64 range.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

// UnmarshalJSON accepts both string and number encodings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint64(data)
	*a = Amount(v)
	return err
}

// UnmarshalJSON accepts both string and number encodings.
func (e *Energy) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint64(data)
	*e = Energy(v)
	return err
}

func unmarshalUint64(data []byte) (uint64, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strconv.ParseUint(s, 10, 64)
	}
	var n uint64
	err := json.Unmarshal(data, &n)
	return n, err
}

// Timestamp is a point in time with millisecond precision.
type Timestamp uint64

// TimestampFromTime converts time.Time into Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// FutureMinutes returns a timestamp the given number of minutes from now.
func FutureMinutes(n int) Timestamp {
	return TimestampFromTime(time.Now().Add(time.Duration(n) * time.Minute))
}

// Time converts the timestamp to time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// MaxRFC3339Timestamp is the last timestamp with a four-digit year. Later
// ones have no RFC 3339 form.
const MaxRFC3339Timestamp Timestamp = 253402300799999

// RFC3339 returns the RFC 3339 form of the timestamp, false is returned for
// timestamps past MaxRFC3339Timestamp.
func (t Timestamp) RFC3339() (string, bool) {
	if t > MaxRFC3339Timestamp {
		return "", false
	}
	return t.Time().Format(time.RFC3339Nano), true
}

// TimestampSchemaValue is the schema JSON form of Timestamp. It's an RFC 3339
// string up to MaxRFC3339Timestamp and a number of milliseconds after it.
type TimestampSchemaValue Timestamp

// ToSchemaValue converts the timestamp into its schema JSON value.
func (t Timestamp) ToSchemaValue() TimestampSchemaValue {
	return TimestampSchemaValue(t)
}

// MarshalJSON implements the json.Marshaler interface.
func (v TimestampSchemaValue) MarshalJSON() ([]byte, error) {
	if s, ok := Timestamp(v).RFC3339(); ok {
		return json.Marshal(s)
	}
	return []byte(strconv.FormatUint(uint64(v), 10)), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface, both RFC 3339
// strings and numbers of milliseconds are accepted.
func (v *TimestampSchemaValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ts, err := TimestampFromSchemaValue(s)
		if err != nil {
			return err
		}
		*v = TimestampSchemaValue(ts)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	*v = TimestampSchemaValue(n)
	return nil
}

// TimestampFromSchemaValue parses the RFC 3339 representation.
func TimestampFromSchemaValue(s string) (Timestamp, error) {
	tm, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	ms := tm.UnixMilli()
	if ms < 0 {
		return 0, errors.New("timestamp before Unix epoch")
	}
	return Timestamp(ms), nil
}

// TransactionExpiry is the expiry of an account transaction in seconds since
// the Unix epoch.
type TransactionExpiry uint64

// ExpiryIn returns an expiry the given duration from now.
func ExpiryIn(d time.Duration) TransactionExpiry {
	return TransactionExpiry(time.Now().Add(d).Unix())
}

// SequenceNumber is the account nonce.
type SequenceNumber uint64

// ContractTransactionMetadata is the data needed to create a contract
// transaction besides the parameter.
type ContractTransactionMetadata struct {
	// Amount of CCD to send along with the update.
	Amount Amount
	// SenderAddress is the account sending (and paying for) the transaction.
	SenderAddress AccountAddress
	// Energy is the maximum contract execution energy.
	Energy Energy
}

// ContractInvokeMetadata is optional data for contract dry-runs.
type ContractInvokeMetadata struct {
	Invoker *Address
	Amount  Amount
	Energy  *Energy
}
