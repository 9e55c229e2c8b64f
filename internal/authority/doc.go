// Package authority implementa el registry de identity providers por tipo de
// authority: la config persistida por provider id, y el cache de instancias
// construidas con single-flight, TTL y capacidad acotada.
//
// Cada tipo de provider (password, webauthn) instancia una Authority con su
// propio Builder; el resto de la maquinaria es compartida.
package authority
