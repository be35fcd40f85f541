package entitlement

// ProductType identifies which aggregation product a bank connection is billed for
type ProductType string

const (
	// ProductTypeTransaction covers checking/savings transaction feeds
	ProductTypeTransaction ProductType = "transaction"

	// ProductTypeInvestment covers brokerage holdings and investment transactions
	ProductTypeInvestment ProductType = "investment"
)

// String returns the string representation of ProductType
func (p ProductType) String() string {
	return string(p)
}

// IsValid returns true if the product type is valid
func (p ProductType) IsValid() bool {
	switch p {
	case ProductTypeTransaction, ProductTypeInvestment:
		return true
	}
	return false
}

// TokenType returns the token counter this product draws from
func (p ProductType) TokenType() TokenType {
	return TokenType(p)
}

// AllProductTypes returns every valid product type
func AllProductTypes() []ProductType {
	return []ProductType{ProductTypeTransaction, ProductTypeInvestment}
}

// ParseProductType parses a string into a ProductType
func ParseProductType(s string) (ProductType, bool) {
	p := ProductType(s)
	return p, p.IsValid()
}

// TokenType identifies a counter in the token wallet. It is a superset of
// ProductType: swap tokens exist in the wallet but no connection bills them.
type TokenType string

const (
	TokenTypeTransaction TokenType = "transaction"
	TokenTypeInvestment  TokenType = "investment"
	TokenTypeSwap        TokenType = "swap"
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	return string(t)
}

// IsValid returns true if the token type is valid
func (t TokenType) IsValid() bool {
	switch t {
	case TokenTypeTransaction, TokenTypeInvestment, TokenTypeSwap:
		return true
	}
	return false
}

// ParseTokenType parses a string into a TokenType
func ParseTokenType(s string) (TokenType, bool) {
	t := TokenType(s)
	return t, t.IsValid()
}

// TokenAction describes what happened to a token counter in a history entry
type TokenAction string

const (
	TokenActionConsumed TokenAction = "consumed"
	TokenActionRefilled TokenAction = "refilled"
	TokenActionSwapped  TokenAction = "swapped"
)

// IsValid returns true if the token action is valid
func (a TokenAction) IsValid() bool {
	switch a {
	case TokenActionConsumed, TokenActionRefilled, TokenActionSwapped:
		return true
	}
	return false
}
