package dfe

// Endpoint reúne URL e SOAPAction de um serviço
type Endpoint struct {
	URL    string
	Action string
}

// Endpoints é a tabela de serviços por ambiente e operação
type Endpoints map[Environment]map[Operation]Endpoint

// DefaultEndpoints são os serviços do Ambiente Nacional
var DefaultEndpoints = Endpoints{
	Homologation: {
		OperationDistribution: {
			URL:    "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
			Action: distributionWSDL + "/nfeDistDFeInteresse",
		},
		OperationEvent: {
			URL:    "https://hom1.nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			Action: eventWSDL + "/nfeRecepcaoEvento",
		},
	},
	Production: {
		OperationDistribution: {
			URL:    "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
			Action: distributionWSDL + "/nfeDistDFeInteresse",
		},
		OperationEvent: {
			URL:    "https://www.nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			Action: eventWSDL + "/nfeRecepcaoEvento",
		},
	},
}

// Lookup retorna o serviço da operação no ambiente
func (e Endpoints) Lookup(env Environment, op Operation) (Endpoint, error) {
	ops, ok := e[env]
	if !ok {
		return Endpoint{}, newValidationError("environment", "ambiente %q sem serviços configurados", env)
	}
	endpoint, ok := ops[op]
	if !ok || endpoint.URL == "" {
		return Endpoint{}, newValidationError("environment", "operação %d sem serviço no ambiente %q", op, env)
	}
	return endpoint, nil
}
