package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrEmptyName      = errors.New("el nombre no puede estar vacío")
	ErrNameTooLong    = errors.New("el nombre no puede superar 30 caracteres")
	ErrDuplicateName  = errors.New("ya existe un elemento con ese nombre en este nivel")
	ErrParentNotFound = errors.New("el elemento padre no existe")
	ErrUnknownModule  = errors.New("módulo desconocido")
	ErrUnknownLevel   = errors.New("nivel desconocido para este módulo")
	ErrInvalidInput   = errors.New("entrada inválida")
)
