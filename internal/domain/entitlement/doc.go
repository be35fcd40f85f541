// Package entitlement provides domain models for the token-based bank-connection
// entitlement system.
//
// A monthly subscription grants an account a number of transaction and investment
// tokens plus a small swap-token allowance. Each linked bank connection occupies
// one token per billed product for the cycle. Connections can be flagged for
// removal at the next rollover, which releases their tokens for the following
// cycle without interrupting the current one.
//
// Key Aggregates:
//   - BankConnection: a linked institution and the products it is billed for
//   - TokenWallet: current-cycle balances and the paid-for next-cycle limits
//
// Policy:
//   - policy.go holds the pure entitlement rules (minimum next-cycle limits,
//     projected renewal tokens, swap eligibility). It never touches storage.
package entitlement
