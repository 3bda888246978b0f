package auth

import (
	"encoding/json"
	"net/http"
)

// Client-facing messages
const (
	MsgTokenRequired      = "Token de acesso requerido"
	MsgInvalidToken       = "Token inválido ou expirado"
	MsgUserNotFound       = "Usuário não encontrado"
	MsgNoCompany          = "Usuário não vinculado a uma empresa"
	MsgForbidden          = "Permissão insuficiente"
	MsgInternal           = "Erro interno do servidor"
	MsgEmailTaken         = "Email já cadastrado"
	MsgInvalidCredentials = "Credenciais inválidas"
)

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
