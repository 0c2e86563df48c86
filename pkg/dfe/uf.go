package dfe

import "strings"

// DefaultStateCode é o código IBGE usado quando a UF não é encontrada (São Paulo)
const DefaultStateCode = "35"

// stateCodes mapeia a sigla da UF para o código IBGE exigido no cUFAutor
var stateCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27",
	"SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// StateCode retorna o código numérico da UF. Siglas desconhecidas retornam
// DefaultStateCode em vez de erro.
func StateCode(uf string) string {
	if code, ok := stateCodes[strings.ToUpper(strings.TrimSpace(uf))]; ok {
		return code
	}
	return DefaultStateCode
}

// IsKnownState informa se a sigla está na tabela
func IsKnownState(uf string) bool {
	_, ok := stateCodes[strings.ToUpper(strings.TrimSpace(uf))]
	return ok
}
