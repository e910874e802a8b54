package glsurface

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Point vertex shader: displaces each point along a curl-like field and
// grows points that moved further from their rest position.
const pointVertSrc = `#version 410 core

layout(location = 0) in vec3 aPos;

uniform mat4 uProjection;
uniform mat4 uView;
uniform mat4 uModel;
uniform float uTime;
uniform float uSize;
uniform float uFrequency;
uniform float uAmplitude;
uniform float uOffsetGain;
uniform float uMaxDistance;
uniform float uOffsetSize;
uniform float uPixelRatio;

out float vDistance;

vec3 curl(vec3 p) {
    return vec3(
        sin(p.y * 1.7 + cos(p.z * 1.3)) - cos(p.z * 0.9 + sin(p.x * 1.1)),
        sin(p.z * 1.9 + cos(p.x * 1.1)) - cos(p.x * 1.3 + sin(p.y * 0.7)),
        sin(p.x * 1.5 + cos(p.y * 1.7)) - cos(p.y * 1.1 + sin(p.z * 1.5))
    );
}

void main() {
    vec3 normal = normalize(aPos + vec3(1e-5));
    vec3 target = aPos + normal * 0.1 + curl(aPos * uFrequency + uTime * 0.01) * uAmplitude;
    float d = length(aPos - target) / uMaxDistance;
    vec3 pos = mix(aPos, target, pow(d, 4.0));
    pos.z += sin(uTime * 0.05) * (0.1 * uOffsetGain);

    vec4 mv = uView * uModel * vec4(pos, 1.0);
    gl_PointSize = (uSize + pow(d, 3.0) * uOffsetSize / max(-mv.z, 0.1)) * uPixelRatio;
    gl_Position = uProjection * mv;
    vDistance = d;
}
` + "\x00"

// Point fragment shader: round soft points coloured by displacement.
const pointFragSrc = `#version 410 core

uniform vec3 uStartColor;
uniform vec3 uEndColor;

in float vDistance;
out vec4 FragColor;

void main() {
    vec2 c = gl_PointCoord - 0.5;
    float r = length(c);
    if (r > 0.5) discard;
    float alpha = smoothstep(0.5, 0.3, r);
    vec3 color = mix(uStartColor, uEndColor, clamp(vDistance, 0.0, 1.0));
    FragColor = vec4(color, alpha);
}
` + "\x00"

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}

func linkProgram(vertSrc, fragSrc string) (uint32, error) {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(buf, "\x00"))
	}
	return program, nil
}
