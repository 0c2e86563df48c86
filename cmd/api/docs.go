package main

// @title           NF-e DF-e API
// @version         1.0
// @description     Distribuição de DF-e e manifestação do destinatário da NF-e

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Cabeçalho de autenticação JWT usando o esquema Bearer. Exemplo: "Bearer {token}"
