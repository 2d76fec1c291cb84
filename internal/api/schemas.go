package api

const createAccountSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["name", "type"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 255},
    "type": {"type": "string", "minLength": 1, "maxLength": 64},
    "bank_name": {"type": "string", "maxLength": 255},
    "account_num": {"type": "string", "maxLength": 64},
    "budget_monitored": {"type": "boolean"}
  }
}`

// Read-only fields a client may echo back from a GET are accepted and ignored.
const updateAccountSchema = `{
  "type": "object",
  "additionalProperties": false,
  "minProperties": 1,
  "properties": {
    "id": {"type": "string"},
    "uri": {"type": "string"},
    "name": {"type": "string", "minLength": 1, "maxLength": 255},
    "type": {"type": "string", "minLength": 1, "maxLength": 64},
    "bank_name": {"type": "string", "maxLength": 255},
    "account_num": {"type": "string", "maxLength": 64},
    "budget_monitored": {"type": "boolean"},
    "bal_uncleared": {"type": ["number", "string"]},
    "bal_cleared": {"type": ["number", "string"]},
    "bal_reconciled": {"type": ["number", "string"]}
  }
}`

const postTransactionSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["date", "amount"],
  "properties": {
    "date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "type": {"type": "string", "maxLength": 64},
    "payee": {"type": "string", "maxLength": 255},
    "memo": {"type": "string", "maxLength": 1024},
    "amount": {"type": ["number", "string"]},
    "reconciled": {"type": "string", "enum": ["", " ", "C", "R"]},
    "cat_or_acct_id": {"type": "string", "maxLength": 255}
  }
}`

const updateTransactionSchema = `{
  "type": "object",
  "additionalProperties": false,
  "minProperties": 1,
  "properties": {
    "id": {"type": "string"},
    "uri": {"type": "string"},
    "date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "type": {"type": "string", "maxLength": 64},
    "payee": {"type": "string", "maxLength": 255},
    "memo": {"type": "string", "maxLength": 1024},
    "amount": {"type": ["number", "string"]},
    "reconciled": {"type": "string", "enum": ["", " ", "C", "R"]},
    "cat_or_acct_id": {"type": "string", "maxLength": 255}
  }
}`
